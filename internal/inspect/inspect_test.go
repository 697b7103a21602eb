package inspect

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sam36502/disekt/internal/analysis"
	"github.com/Sam36502/disekt/internal/disk"
	"github.com/Sam36502/disekt/internal/disk/disktest"
	"github.com/Sam36502/disekt/internal/logger"
	"github.com/Sam36502/disekt/pkg/dfxml"
	"github.com/stretchr/testify/require"
)

var (
	blockA = disk.Position{Track: 1, Sector: 0}
	blockB = disk.Position{Track: 1, Sector: 1}
)

func console() *logger.Logger {
	return logger.New(io.Discard, logger.DebugLevel)
}

func writeImage(t *testing.T, b *disktest.Builder) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "disk.d64")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func testDisk() *disktest.Builder {
	b := disktest.New("TEST DISK")
	b.AddFile("HELLO", 0x11, blockA, blockB)
	return b
}

func writeBlock(sb *strings.Builder, pos disk.Position, data []byte) {
	fmt.Fprintf(sb, ">>> BLOCK-START: T=%d; S=%d <<<\n", pos.Track, pos.Sector)
	for off := 0; off < len(data); off += 16 {
		fmt.Fprintf(sb, "[0x%02X]", off)
		for _, b := range data[off : off+16] {
			fmt.Fprintf(sb, " %02X", b)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(sb, ">>> BLOCK-END; C=0x%04X; E=1 <<<\n", disk.Checksum(data))
}

func writeLog(t *testing.T, b *disktest.Builder, positions ...disk.Position) string {
	t.Helper()

	var sb strings.Builder
	for _, pos := range positions {
		writeBlock(&sb, pos, b.Sector(pos))
	}

	path := filepath.Join(t.TempDir(), "capture.log")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func open(t *testing.T, imagePath string, opts Options) *Session {
	t.Helper()

	opts.DisableLog = true
	s, err := Open(imagePath, opts, console())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenWithoutCapture(t *testing.T) {
	s := open(t, writeImage(t, testDisk()), Options{})

	require.Nil(t, s.Source)
	require.Empty(t, s.LogPath)
	require.Equal(t, "TEST DISK", s.Directory.Name())

	objs := FileObjects(s.Analysis)
	require.Len(t, objs, 1)

	obj := objs[0]
	require.Equal(t, "HELLO", obj.Filename)
	require.Equal(t, "PRG", obj.NameType)
	require.Equal(t, 2, obj.Blocks)
	require.Equal(t, FileGood, obj.Status)
	require.Equal(t, uint64(2*254), obj.FileSize)

	require.Equal(t, []dfxml.ByteRun{
		{Offset: 0, ImgOffset: 2, Length: 254, Track: 1, Sector: 0},
		{Offset: 254, ImgOffset: 258, Length: 254, Track: 1, Sector: 1},
	}, obj.ByteRuns.Runs)
}

func TestOpenWithCaptureLog(t *testing.T) {
	b := testDisk()
	imagePath := writeImage(t, b)

	partial := writeLog(t, b, blockA)
	s := open(t, imagePath, Options{CapturePaths: []string{partial}})
	require.Equal(t, []string{partial}, s.Captures)
	require.Equal(t, analysis.StatusPresent, s.Analysis.Sectors[0].Status)
	require.True(t, s.Analysis.Sectors[0].HasTransferInfo)
	require.Equal(t, FileGood, FileObjects(s.Analysis)[0].Status)

	full := writeLog(t, b, blockA, blockB)
	s = open(t, imagePath, Options{CapturePaths: []string{full}})
	require.Equal(t, FileConfirmed, FileObjects(s.Analysis)[0].Status)
}

func TestOpenConcatenatesLogs(t *testing.T) {
	b := testDisk()

	first := writeLog(t, b, blockA)
	second := writeLog(t, b, blockB)

	s := open(t, writeImage(t, b), Options{CapturePaths: []string{first, second}})
	require.Equal(t, FileConfirmed, FileObjects(s.Analysis)[0].Status)
}

func TestOpenMissingStore(t *testing.T) {
	_, err := Open(writeImage(t, testDisk()), Options{
		StorePath:  filepath.Join(t.TempDir(), "missing.d64r"),
		DisableLog: true,
	}, console())
	require.Error(t, err)
}

func TestOpenUnreadableBAM(t *testing.T) {
	b := testDisk()
	b.Sector(disk.BAMPosition)[2] = 0x00
	imagePath := writeImage(t, b)

	_, err := Open(imagePath, Options{DisableLog: true}, console())
	require.ErrorIs(t, err, disk.ErrBAMUnreadable)

	s := open(t, imagePath, Options{IgnoreInvalidBAM: true})
	require.Equal(t, disk.DefaultBAM(), s.Directory.BAM)
	require.Equal(t, 0, s.Directory.Len())
}

func TestOpenWritesSessionLog(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(writeImage(t, testDisk()), Options{LogDir: dir}, console())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.Equal(t, dir, filepath.Dir(s.LogPath))
	data, err := os.ReadFile(s.LogPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "analysis complete")
}

func TestWriteReport(t *testing.T) {
	s := open(t, writeImage(t, testDisk()), Options{})

	var buf bytes.Buffer
	require.NoError(t, s.WriteReport(&buf))

	out := buf.String()
	require.Contains(t, out, "<disk_name>TEST DISK</disk_name>")
	require.Contains(t, out, "<disk_summary>")
	require.Contains(t, out, fmt.Sprintf("<sectors>%d</sectors>", disk.TotalSectors))

	objs, err := dfxml.ReadFileObjects(&buf)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	require.Equal(t, "HELLO", objs[0].Filename)
	require.Len(t, objs[0].ByteRuns.Runs, 2)
}

func TestIngest(t *testing.T) {
	b := testDisk()
	logPath := writeLog(t, b, blockA, blockB)
	storePath := filepath.Join(t.TempDir(), "capture.d64r")

	info, err := os.Stat(logPath)
	require.NoError(t, err)

	stats, err := Ingest(storePath, []string{logPath}, false, console())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Blocks)
	require.Equal(t, 2, stats.Written)
	require.Equal(t, info.Size(), stats.Offset)

	// Nothing new to parse.
	stats, err = Ingest(storePath, []string{logPath}, false, console())
	require.NoError(t, err)
	require.Equal(t, 0, stats.Blocks)
	require.Equal(t, info.Size(), stats.Offset)

	stats, err = Ingest(storePath, []string{logPath}, true, console())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Blocks)
	require.Equal(t, 2, stats.Written)

	s := open(t, writeImage(t, b), Options{StorePath: storePath})
	require.Equal(t, []string{storePath}, s.Captures)
	require.Equal(t, FileConfirmed, FileObjects(s.Analysis)[0].Status)
}

func TestIngestResumesUnterminatedBlock(t *testing.T) {
	b := testDisk()
	logPath := writeLog(t, b, blockA)
	storePath := filepath.Join(t.TempDir(), "capture.d64r")

	info, err := os.Stat(logPath)
	require.NoError(t, err)

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(">>> BLOCK-START: T=1; S=1 <<<\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	stats, err := Ingest(storePath, []string{logPath}, false, console())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Blocks)
	require.Equal(t, info.Size(), stats.Offset)

	// The capture goes on and completes the block.
	var sb strings.Builder
	data := b.Sector(blockB)
	for off := 0; off < len(data); off += 16 {
		fmt.Fprintf(&sb, "[0x%02X]", off)
		for _, v := range data[off : off+16] {
			fmt.Fprintf(&sb, " %02X", v)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, ">>> BLOCK-END; C=0x%04X; E=1 <<<\n", disk.Checksum(data))

	f, err = os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(sb.String())
	require.NoError(t, err)
	require.NoError(t, f.Close())

	stats, err = Ingest(storePath, []string{logPath}, false, console())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Blocks)
	require.Equal(t, 1, stats.Written)
}

func TestBlockLength(t *testing.T) {
	require.Equal(t, 254, blockLength([]byte{18, 1}))
	require.Equal(t, 254, blockLength([]byte{0, 0xFF}))
	require.Equal(t, 9, blockLength([]byte{0, 10}))
	require.Equal(t, 0, blockLength([]byte{0, 1}))
	require.Equal(t, 0, blockLength([]byte{0, 0}))
}

func TestFileStatus(t *testing.T) {
	good := &analysis.SectorInfo{Status: analysis.StatusGood}
	confirmed := &analysis.SectorInfo{Status: analysis.StatusConfirmed, HasTransferInfo: true, ChecksumMatch: true}
	captured := &analysis.SectorInfo{Status: analysis.StatusPresent, HasTransferInfo: true, ChecksumMatch: true}
	bad := &analysis.SectorInfo{Status: analysis.StatusBad}
	corrupted := &analysis.SectorInfo{Status: analysis.StatusCorrupted}

	require.Equal(t, FileConfirmed, fileStatus([]*analysis.SectorInfo{confirmed, confirmed}, 2))
	require.Equal(t, FileConfirmed, fileStatus([]*analysis.SectorInfo{captured, captured}, 2))
	require.Equal(t, FileGood, fileStatus([]*analysis.SectorInfo{confirmed, good}, 2))
	require.Equal(t, FileIncomplete, fileStatus([]*analysis.SectorInfo{confirmed}, 2))
	require.Equal(t, FileBad, fileStatus([]*analysis.SectorInfo{bad}, 2))
	require.Equal(t, FileCorrupted, fileStatus([]*analysis.SectorInfo{bad, corrupted}, 2))
}

func TestRecoveredImage(t *testing.T) {
	b := testDisk()
	s := open(t, writeImage(t, b), Options{})

	img := RecoveredImage(s.Analysis)
	require.Equal(t, b.Bytes(), img)
}

func TestFormatDurationHMS(t *testing.T) {
	require.Equal(t, "0.50s", FormatDurationHMS(500*time.Millisecond))
	require.Equal(t, "01:01:01", FormatDurationHMS(time.Hour+time.Minute+time.Second))
}

package disk_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Sam36502/disekt/internal/disk"
	"github.com/Sam36502/disekt/internal/disk/disktest"
	"github.com/stretchr/testify/require"
)

func TestParseDirectory(t *testing.T) {
	b := disktest.New("TEST DISK")
	b.AddFile("HELLO", 0x11, disk.Position{Track: 1, Sector: 0}, disk.Position{Track: 1, Sector: 10})
	b.AddFile("WORLD", 0x22, disk.Position{Track: 2, Sector: 0})

	dir, err := disk.ParseDirectory(b.Image())
	require.NoError(t, err)

	require.Equal(t, disktest.FirstDirSector, dir.Link)
	require.Equal(t, []disk.Position{disktest.FirstDirSector}, dir.Sectors)
	require.Equal(t, "TEST DISK", dir.Name())
	require.Equal(t, "TEST DISK"+strings.Repeat(" ", 9)+"ID 2A", dir.Description())

	require.Equal(t, 2, dir.Len())

	hello := dir.Entries[0]
	require.Equal(t, "HELLO", hello.Name)
	require.Equal(t, disk.FileTypePRG, hello.Type)
	require.True(t, hello.Closed)
	require.False(t, hello.Locked)
	require.Equal(t, disk.Position{Track: 1, Sector: 0}, hello.Head)
	require.Equal(t, uint16(2), hello.Blocks)

	require.Equal(t, "WORLD", dir.Entries[1].Name)
	require.Equal(t, uint16(1), dir.Entries[1].Blocks)

	require.False(t, dir.BAM.IsFree(disk.BAMPosition))
	require.False(t, dir.BAM.IsFree(disk.Position{Track: 1, Sector: 10}))
	require.True(t, dir.BAM.IsFree(disk.Position{Track: 1, Sector: 11}))
	require.Equal(t, 19, dir.BAM.FreeCount(1))
	require.Equal(t, 19, dir.BAM.FreeSectors(1))
}

func TestParseDirectoryStopsAtZeroType(t *testing.T) {
	b := disktest.New("X")
	b.AddEntry(0x81, "FIRST", disk.Position{Track: 3, Sector: 0}, 1)

	// A record after an empty slot is padding, not a file.
	dir := b.Sector(disktest.FirstDirSector)
	rec := dir[2+32*2:]
	rec[0] = 0x82
	copy(rec[3:], "HIDDEN")

	parsed, err := disk.ParseDirectory(b.Image())
	require.NoError(t, err)
	require.Equal(t, 1, parsed.Len())
	require.Equal(t, "FIRST", parsed.Entries[0].Name)
	require.Equal(t, disk.FileTypeSEQ, parsed.Entries[0].Type)
}

func TestParseDirectoryChain(t *testing.T) {
	b := disktest.New("CHAIN")
	for i := 0; i < disk.EntriesPerSector; i++ {
		b.AddEntry(0x82, "FILE", disk.Position{Track: 1, Sector: uint8(i)}, 1)
	}

	second := disk.Position{Track: 18, Sector: 4}
	b.SetLink(disktest.FirstDirSector, second)
	s := b.Sector(second)
	s[0], s[1] = 0x00, 0xFF
	s[2] = 0x81
	s[3], s[4] = 5, 5
	copy(s[5:], "NINTH")

	dir, err := disk.ParseDirectory(b.Image())
	require.NoError(t, err)
	require.Equal(t, 9, dir.Len())
	require.Equal(t, "NINTH", dir.Entries[8].Name)
	require.Equal(t, []disk.Position{disktest.FirstDirSector, second}, dir.Sectors)
}

func TestParseDirectoryCycleKeepsEntries(t *testing.T) {
	b := disktest.New("LOOP")
	b.AddEntry(0x82, "A", disk.Position{Track: 1, Sector: 0}, 1)
	b.SetLink(disktest.FirstDirSector, disktest.FirstDirSector)

	dir, err := disk.ParseDirectory(b.Image())
	require.ErrorIs(t, err, disk.ErrMalformedDirectory)
	require.False(t, errors.Is(err, disk.ErrBAMUnreadable))
	require.Equal(t, 1, dir.Len())
}

func TestParseDirectoryLinkToBAM(t *testing.T) {
	b := disktest.New("SELF")
	b.SetLink(disk.BAMPosition, disk.BAMPosition)

	dir, err := disk.ParseDirectory(b.Image())
	require.ErrorIs(t, err, disk.ErrMalformedDirectory)
	require.False(t, errors.Is(err, disk.ErrBAMUnreadable))
	require.Zero(t, dir.Len())
}

func TestParseDirectoryDanglingLink(t *testing.T) {
	b := disktest.New("DANGLE")
	b.AddEntry(0x82, "A", disk.Position{Track: 1, Sector: 0}, 1)
	b.SetLink(disktest.FirstDirSector, disk.Position{Track: 40, Sector: 0})

	dir, err := disk.ParseDirectory(b.Image())
	require.ErrorIs(t, err, disk.ErrMalformedDirectory)
	require.Equal(t, 1, dir.Len())
}

func TestParseDirectoryMissingMarker(t *testing.T) {
	b := disktest.New("BROKEN")
	b.Sector(disk.BAMPosition)[2] = 0x00

	dir, err := disk.ParseDirectory(b.Image())
	require.ErrorIs(t, err, disk.ErrBAMUnreadable)
	require.ErrorIs(t, err, disk.ErrMalformedDirectory)
	require.NotNil(t, dir)
	require.Equal(t, 0, dir.Len())
}

func TestParseDirectoryInvalidHeadLink(t *testing.T) {
	b := disktest.New("BROKEN")
	b.SetLink(disk.BAMPosition, disk.Position{Track: 0, Sector: 0})

	_, err := disk.ParseDirectory(b.Image())
	require.ErrorIs(t, err, disk.ErrBAMUnreadable)
}

func TestParseDirectoryTruncatedImage(t *testing.T) {
	_, err := disk.ParseDirectory(disk.NewImage(make([]byte, 1024)))
	require.ErrorIs(t, err, disk.ErrBAMUnreadable)
	require.ErrorIs(t, err, disk.ErrIO)
}

func TestDefaultBAM(t *testing.T) {
	bam := disk.DefaultBAM()
	for index, pos := range disk.Positions() {
		if pos.Track == disk.DirectoryTrack {
			require.False(t, bam.IsFree(pos), "index %d", index)
		} else {
			require.True(t, bam.IsFree(pos), "index %d", index)
		}
	}
	require.Equal(t, 0, bam.FreeCount(disk.DirectoryTrack))
	require.Equal(t, 21, bam.FreeCount(1))
	require.Equal(t, 17, bam.FreeSectors(35))
	require.Equal(t, disk.TotalSectors-19, bam.TotalFree())
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   []byte
		want string
	}{
		{[]byte("HELLO\xa0\xa0\xa0"), "HELLO"},
		{[]byte("  LEADING"), "LEADING"},
		{[]byte("A\xa0B\xa0\xa0"), "A B"},
		{[]byte("CUT\x00HIDDEN"), "CUT"},
		{[]byte("BELL\x07ED"), "BELLED"},
		{[]byte("\xc1\xc2\xc3"), "ABC"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, disk.CleanText(c.in))
	}
}

func TestImageSector(t *testing.T) {
	img := disk.NewImage(make([]byte, disk.BlockSize*2+10))

	_, err := img.Sector(1)
	require.NoError(t, err)

	_, err = img.Sector(2)
	require.ErrorIs(t, err, disk.ErrIO)

	_, err = img.Sector(disk.TotalSectors)
	require.ErrorIs(t, err, disk.ErrInvalidPosition)

	_, err = img.SectorAt(disk.Position{Track: 0, Sector: 0})
	require.ErrorIs(t, err, disk.ErrInvalidPosition)
}

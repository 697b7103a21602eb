package inspect

import (
	"io"

	"github.com/Sam36502/disekt/internal/analysis"
	"github.com/Sam36502/disekt/internal/disk"
	"github.com/Sam36502/disekt/internal/env"
	"github.com/Sam36502/disekt/pkg/dfxml"
)

// File statuses reported in the DFXML report.
const (
	FileConfirmed  = "Confirmed"
	FileGood       = "Good"
	FileIncomplete = "Incomplete"
	FileBad        = "Bad"
	FileCorrupted  = "Corrupted"
)

// dataOffset skips the chain link at the start of every block.
const dataOffset = 2

// WriteReport writes the DFXML report of the session to w.
func (s *Session) WriteReport(w io.Writer) error {
	rw := dfxml.NewDFXMLWriter(w)

	err := rw.WriteHeader(dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename:    absPath(s.ImagePath),
			CaptureFilenames: s.Captures,
			SectorSize:       disk.BlockSize,
			ImageSize:        uint64(s.Image.Size()),
			DiskName:         s.Directory.Name(),
		},
	})
	if err != nil {
		return err
	}

	for _, obj := range FileObjects(s.Analysis) {
		if err := rw.WriteFileObject(obj); err != nil {
			return err
		}
	}

	res := s.Analysis
	err = rw.WriteSummary(dfxml.Summary{
		Sectors: disk.TotalSectors,
		Free:    res.CountFree,
		InUse:   res.CountInUse,
		Healthy: res.CountHealthy,
		Bad:     res.CountBad,
	})
	if err != nil {
		return err
	}
	return rw.Close()
}

// FileObjects describes every directory entry of res together with the
// extents of its resolved blocks. Offsets refer to RecoveredImage.
func FileObjects(res *analysis.DiskAnalysis) []dfxml.FileObject {
	objs := make([]dfxml.FileObject, 0, res.Directory.Len())

	for i, entry := range res.Directory.Entries {
		blocks := res.FileBlocks(i)

		obj := dfxml.FileObject{
			Filename: entry.Name,
			NameType: entry.Type.String(),
			Blocks:   int(entry.Blocks),
			Status:   fileStatus(blocks, int(entry.Blocks)),
		}

		var off uint64
		for _, b := range blocks {
			n := uint64(blockLength(b.Data[:]))
			if n == 0 {
				continue
			}
			obj.ByteRuns.Runs = append(obj.ByteRuns.Runs, dfxml.ByteRun{
				Offset:    off,
				ImgOffset: uint64(b.Index)*disk.BlockSize + dataOffset,
				Length:    n,
				Track:     b.Position.Track,
				Sector:    b.Position.Sector,
			})
			off += n
		}
		obj.FileSize = off

		objs = append(objs, obj)
	}
	return objs
}

// blockLength returns the number of payload bytes of a block. The last
// block of a chain stores the index of its last used byte in place of the
// sector link.
func blockLength(data []byte) int {
	const payload = disk.BlockSize - dataOffset

	if data[0] != 0 {
		return payload
	}
	return min(max(int(data[1])-1, 0), payload)
}

// fileStatus summarizes a file from its blocks. A block counts as confirmed
// when a clean capture backs it, whatever structural status it ended with.
func fileStatus(blocks []*analysis.SectorInfo, declared int) string {
	var bad, confirmed int
	for _, b := range blocks {
		switch b.Status {
		case analysis.StatusCorrupted:
			return FileCorrupted
		case analysis.StatusBad:
			bad++
		}
		if b.HasTransferInfo && b.ChecksumMatch && b.Status.Healthy() {
			confirmed++
		}
	}

	switch {
	case bad > 0:
		return FileBad
	case len(blocks) < declared:
		return FileIncomplete
	case len(blocks) > 0 && confirmed == len(blocks):
		return FileConfirmed
	}
	return FileGood
}

// RecoveredImage returns the sector data of res laid out as a disk image.
// Captured sectors replace the content of the original image.
func RecoveredImage(res *analysis.DiskAnalysis) []byte {
	img := make([]byte, disk.ImageSize)
	for i := range res.Sectors {
		copy(img[i*disk.BlockSize:], res.Sectors[i].Data[:])
	}
	return img
}

package analysis

import (
	"encoding/binary"

	"github.com/Sam36502/disekt/internal/disk"
)

type CheckResult uint8

const (
	CheckSkipped CheckResult = iota
	CheckFailed
	CheckPassed
)

func (r CheckResult) String() string {
	switch r {
	case CheckSkipped:
		return "SKIPPED"
	case CheckFailed:
		return "FAILED"
	case CheckPassed:
		return "PASSED"
	}
	return "INVALID"
}

// Check is a named consistency test run against a single sector.
type Check struct {
	Name string
	Run  func(s *SectorInfo) CheckResult
}

var Checks = []Check{
	{Name: "Validate Checksum", Run: checkChecksum},
	{Name: "Check Data Format", Run: checkDataFormat},
	{Name: "Check Chain Link", Run: checkChainLink},
}

type CheckOutcome struct {
	Name   string
	Result CheckResult
}

// RunChecks runs every check against s, in order.
func RunChecks(s *SectorInfo) []CheckOutcome {
	out := make([]CheckOutcome, 0, len(Checks))
	for _, c := range Checks {
		out = append(out, CheckOutcome{Name: c.Name, Result: c.Run(s)})
	}
	return out
}

func checkChecksum(s *SectorInfo) CheckResult {
	if !s.HasTransferInfo {
		return CheckSkipped
	}
	if s.Checksum == disk.Checksum(s.Data[:]) {
		return CheckPassed
	}
	return CheckFailed
}

func checkDataFormat(s *SectorInfo) CheckResult {
	switch s.Type {
	case TypeBAM:
		return checkBAMFormat(s.Data[:])
	case TypeDirectory:
		return checkDirectoryFormat(s.Data[:])
	}
	return CheckSkipped
}

// checkBAMFormat verifies the format marker and that every free count
// agrees with the free bits of its track.
func checkBAMFormat(data []byte) CheckResult {
	if data[2] != disk.FormatMarker {
		return CheckFailed
	}

	var bam disk.BAM
	for i := range bam {
		bam[i] = binary.LittleEndian.Uint32(data[4+4*i:])
	}
	for track := disk.MinTrack; track <= disk.MaxTrack; track++ {
		if bam.FreeCount(track) != bam.FreeSectors(track) {
			return CheckFailed
		}
	}
	return CheckPassed
}

// checkDirectoryFormat verifies that every used record has a known file type.
func checkDirectoryFormat(data []byte) CheckResult {
	for i := 0; i < disk.EntriesPerSector; i++ {
		typ := data[2+32*i]
		if typ == 0x00 {
			break
		}
		if disk.FileType(typ&0x07) > disk.FileTypeREL {
			return CheckFailed
		}
	}
	return CheckPassed
}

// checkChainLink verifies the link of a file block: inner blocks must link
// to an existing sector, the last block must end the chain.
func checkChainLink(s *SectorInfo) CheckResult {
	if !s.HasDirectoryInfo || s.Entry == nil {
		return CheckSkipped
	}

	next := disk.Position{Track: s.Data[0], Sector: s.Data[1]}
	if s.FileIndex < int(s.Entry.Blocks)-1 {
		if next.IsValid() {
			return CheckPassed
		}
		return CheckFailed
	}

	if next.Track == 0 && next.Sector >= 1 {
		return CheckPassed
	}
	return CheckFailed
}

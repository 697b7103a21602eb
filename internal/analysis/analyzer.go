// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package analysis

import (
	"bytes"
	"errors"
	"io"
	"log/slog"

	"github.com/Sam36502/disekt/internal/capture"
	"github.com/Sam36502/disekt/internal/disk"
)

// MaxBlankPatterns bounds the number of distinct filler candidates tracked.
const MaxBlankPatterns = 64

type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Analyzer{logger: logger}
}

// Analyze classifies every sector of img. src may be nil when no capture
// is available. Failures affecting a single sector are recorded in its
// classification and never abort the analysis.
func (a *Analyzer) Analyze(img *disk.Image, dir *disk.Directory, src capture.Source) (*DiskAnalysis, error) {
	if img == nil {
		return nil, errors.New("analyze: no disk image")
	}
	if dir == nil {
		return nil, errors.New("analyze: no directory")
	}

	res := &DiskAnalysis{Directory: dir}

	a.scanSectors(res, img, src)
	a.walkDirectory(res, img)
	for i := range dir.Entries {
		a.walkFile(res, img, i)
	}
	a.detectBlank(res)
	a.confirm(res)
	res.updateCounters()

	a.logger.Info("analysis complete",
		"entries", dir.Len(),
		"free", res.CountFree,
		"in_use", res.CountInUse,
		"healthy", res.CountHealthy,
		"bad", res.CountBad,
	)
	return res, nil
}

// scanSectors sets up the baseline classification of every sector.
func (a *Analyzer) scanSectors(res *DiskAnalysis, img *disk.Image, src capture.Source) {
	for index, pos := range disk.Positions() {
		s := &res.Sectors[index]
		*s = SectorInfo{
			Position:   pos,
			Index:      index,
			Type:       TypeUnknown,
			Status:     StatusUnknown,
			IsFree:     res.Directory.BAM.IsFree(pos),
			FileIndex:  -1,
			DirIndex:   -1,
			DiskError:  capture.NotCaptured,
			ParseError: capture.ParseOK,
			Prev:       -1,
			Next:       -1,
		}

		var (
			rec   capture.Record
			found bool
		)
		if src != nil {
			var err error
			rec, found, err = src.Lookup(index)
			if err != nil {
				a.logger.Warn("capture lookup failed", "track", pos.Track, "sector", pos.Sector, "index", index, "error", err)
				found = false
			}
		}

		if found {
			s.Data = rec.Data
			s.HasTransferInfo = true
			s.Checksum = rec.Checksum
			s.DiskError = rec.DiskError
			s.ParseError = rec.ParseError
			s.ChecksumMatch = rec.ChecksumMatch()
		} else if data, err := img.Sector(index); err == nil {
			copy(s.Data[:], data)
		} else {
			a.logger.Debug("sector unreadable, assuming zeros", "track", pos.Track, "sector", pos.Sector, "index", index, "error", err)
		}

		s.HasData = hasData(s.Data[:])

		switch {
		case s.IsFree && s.HasData:
			s.Status = StatusUnexpected
		case s.IsFree:
			s.Status = StatusEmpty
		case s.HasData:
			s.Status = StatusPresent
		default:
			s.Status = StatusMissing
		}

		if found && !rec.Clean() {
			s.Status = StatusCorrupted
		}

		if pos == disk.BAMPosition {
			s.Type = TypeBAM
		} else if s.IsFree {
			s.Type = TypeEmpty
		}
	}
}

// hasData reports whether block holds anything but zeros. A block whose
// only non-zero byte is 0xFF at index 1 is an unused chain terminator.
func hasData(block []byte) bool {
	for i, b := range block {
		if b != 0x00 && (i != 1 || b != 0xFF) {
			return true
		}
	}
	return false
}

// walkDirectory follows the directory chain starting from the link stored
// in the BAM sector of the image.
func (a *Analyzer) walkDirectory(res *DiskAnalysis, img *disk.Image) {
	bamIndex, _ := disk.BAMPosition.Index()

	pos, err := img.Link(bamIndex)
	if err != nil {
		a.logger.Warn("cannot read directory link", "error", err)
		return
	}

	var visited [disk.TotalSectors]bool
	visited[bamIndex] = true

	prev := -1
	dirIndex := 0
	for {
		index, ok := pos.Index()
		if !ok {
			if pos.Track != 0 {
				a.logger.Warn("directory chain links to an invalid sector", "track", pos.Track, "sector", pos.Sector)
			}
			return
		}
		if visited[index] {
			a.logger.Warn("directory chain is cyclic", "track", pos.Track, "sector", pos.Sector, "index", index)
			return
		}
		visited[index] = true

		s := &res.Sectors[index]
		s.Type = TypeDirectory
		if s.Status == StatusUnknown || s.Status == StatusPresent {
			s.Status = StatusGood
		}
		s.DirIndex = dirIndex
		dirIndex += disk.EntriesPerSector

		s.Prev = prev
		if prev >= 0 {
			res.Sectors[prev].Next = index
		}
		prev = index

		next, err := img.Link(index)
		if err != nil {
			a.logger.Warn("directory sector unreadable", "track", pos.Track, "sector", pos.Sector, "error", err)
			s.Status = StatusBad
			return
		}
		pos = next
	}
}

// walkFile resolves the block chain of directory entry i.
func (a *Analyzer) walkFile(res *DiskAnalysis, img *disk.Image, i int) {
	entry := &res.Directory.Entries[i]
	blocks := int(entry.Blocks)

	var visited [disk.TotalSectors]bool

	prev := -1
	pos := entry.Head
	for num := 0; num < blocks; num++ {
		index, ok := pos.Index()
		if !ok {
			return
		}
		if visited[index] {
			a.logger.Warn("file chain is cyclic", "file", entry.Name, "track", pos.Track, "sector", pos.Sector, "block", num)
			return
		}
		visited[index] = true

		s := &res.Sectors[index]
		s.HasDirectoryInfo = true
		s.Entry = entry
		s.DirIndex = i
		s.FileIndex = num
		s.Type = SectorType(entry.Type)
		s.Prev = prev
		s.Next = -1
		if prev >= 0 {
			res.Sectors[prev].Next = index
		}
		prev = index

		// A transfer record already settled the status in the baseline pass.
		judge := !s.HasTransferInfo

		next, err := img.Link(index)
		if err != nil {
			a.logger.Debug("short read in file chain", "file", entry.Name, "track", pos.Track, "sector", pos.Sector, "error", err)
			if judge {
				s.Status = StatusBad
			}
			return
		}

		if judge {
			if num < blocks-1 && !next.IsValid() {
				s.Status = StatusBad
			} else {
				s.Status = StatusGood
			}
		}
		pos = next
	}
}

type blankPattern struct {
	data  []byte
	count int
}

// detectBlank finds the filler pattern of the disk: the most frequent
// content among free sectors holding data. The first pattern seen wins ties.
func (a *Analyzer) detectBlank(res *DiskAnalysis) {
	var patterns []blankPattern

	for i := range res.Sectors {
		s := &res.Sectors[i]
		if !s.IsFree || !s.HasData {
			continue
		}

		found := false
		for j := range patterns {
			if bytes.Equal(patterns[j].data, s.Data[:]) {
				patterns[j].count++
				found = true
				break
			}
		}
		if !found && len(patterns) < MaxBlankPatterns {
			patterns = append(patterns, blankPattern{data: s.Data[:], count: 1})
		}
	}

	if len(patterns) == 0 {
		return
	}

	best := 0
	for j := range patterns {
		if patterns[j].count > patterns[best].count {
			best = j
		}
	}
	blank := patterns[best].data

	marked := 0
	for i := range res.Sectors {
		s := &res.Sectors[i]
		if !s.HasData || !bytes.Equal(s.Data[:], blank) {
			continue
		}

		s.IsBlank = true
		if s.Status == StatusUnexpected {
			s.Status = StatusEmpty
		}
		marked++
	}

	a.logger.Debug("blank pattern detected", "candidates", len(patterns), "matches", marked)
}

func (a *Analyzer) confirm(res *DiskAnalysis) {
	for i := range res.Sectors {
		s := &res.Sectors[i]
		if s.HasTransferInfo && s.Status == StatusGood && s.ChecksumMatch {
			s.Status = StatusConfirmed
		}
	}
}

func (res *DiskAnalysis) updateCounters() {
	res.CountFree, res.CountInUse, res.CountHealthy, res.CountBad = 0, 0, 0, 0

	for i := range res.Sectors {
		s := &res.Sectors[i]
		if s.IsFree {
			res.CountFree++
		}
		if s.Status.Healthy() {
			res.CountHealthy++
		}
		if s.Status == StatusBad {
			res.CountBad++
		}
	}
	res.CountInUse = disk.TotalSectors - res.CountFree
}

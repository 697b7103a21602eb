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
package inspect

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sam36502/disekt/internal/analysis"
	"github.com/Sam36502/disekt/internal/capture"
	"github.com/Sam36502/disekt/internal/disk"
	"github.com/Sam36502/disekt/internal/logger"
	"github.com/Sam36502/disekt/pkg/reader"
)

type Options struct {
	CapturePaths     []string // text logs, read as one stream
	StorePath        string   // binary capture store
	IgnoreInvalidBAM bool
	LogDir           string
	DisableLog       bool
	LogLevel         slog.Level
}

// Session is an opened and analysed disk image.
type Session struct {
	ID        string
	ImagePath string
	LogPath   string
	Captures  []string // store first, then text logs

	Image     *disk.Image
	Directory *disk.Directory
	Source    capture.Source
	Analysis  *analysis.DiskAnalysis
	Logger    *slog.Logger

	closers []io.Closer
}

// Open loads the image at imagePath together with its captures and runs the
// analysis. Progress is reported on console.
func Open(imagePath string, opts Options, console *logger.Logger) (*Session, error) {
	s := &Session{
		ID:        GenSessionID(),
		ImagePath: imagePath,
	}
	if opts.StorePath != "" {
		s.Captures = append(s.Captures, opts.StorePath)
	}
	s.Captures = append(s.Captures, opts.CapturePaths...)

	if !opts.DisableLog {
		s.LogPath = absPath(filepath.Join(opts.LogDir, s.ID) + ".log")
	}

	log, logFile, err := setupLogger(s.LogPath, opts.LogLevel)
	if err != nil {
		return nil, err
	}
	if logFile != nil {
		s.closers = append(s.closers, logFile)
	}
	s.Logger = log

	if err := s.open(opts, console); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) open(opts Options, console *logger.Logger) error {
	img, err := disk.LoadImage(s.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to load image %q: %w", s.ImagePath, err)
	}
	s.closers = append(s.closers, img)
	s.Image = img

	if img.Size() != disk.ImageSize {
		console.Warnf("Image is %d bytes, expected %d", img.Size(), disk.ImageSize)
		s.Logger.Warn("unexpected image size", "size", img.Size(), "expected", disk.ImageSize)
	}

	dir, err := disk.ParseDirectory(img)
	switch {
	case err == nil:
	case errors.Is(err, disk.ErrBAMUnreadable) && opts.IgnoreInvalidBAM:
		console.Warnf("BAM unreadable (%v), using a default allocation map", err)
		s.Logger.Warn("substituting default BAM", "error", err)
		dir.BAM = disk.DefaultBAM()
	case errors.Is(err, disk.ErrBAMUnreadable):
		return fmt.Errorf("%w (use --ignore-invalid-bam to continue)", err)
	default:
		console.Warnf("Directory partially read: %v", err)
		s.Logger.Warn("directory partially read", "entries", dir.Len(), "error", err)
	}
	s.Directory = dir

	src, err := s.openSources(opts, console)
	if err != nil {
		return err
	}
	s.Source = src

	res, err := analysis.NewAnalyzer(s.Logger).Analyze(img, dir, src)
	if err != nil {
		return err
	}
	s.Analysis = res
	return nil
}

func (s *Session) openSources(opts Options, console *logger.Logger) (capture.Source, error) {
	var chain capture.Chain

	if opts.StorePath != "" {
		if _, err := os.Stat(opts.StorePath); err != nil {
			return nil, fmt.Errorf("capture store: %w", err)
		}

		store, err := capture.OpenStore(opts.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open capture store %q: %w", opts.StorePath, err)
		}
		s.closers = append(s.closers, store)
		chain = append(chain, store)

		n, err := store.Count()
		if err != nil {
			return nil, err
		}
		console.Infof("Capture store: \t%s (%d sectors)", absPath(opts.StorePath), n)
	}

	if len(opts.CapturePaths) > 0 {
		logs, err := OpenLogs(opts.CapturePaths)
		if err != nil {
			return nil, err
		}
		defer logs.Close()

		log, _, skipped, err := capture.LoadLog(logs, 0)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			console.Warnf("%d captured blocks have an invalid position", skipped)
		}
		s.Logger.Info("capture log loaded", "files", len(opts.CapturePaths), "sectors", log.Len(), "skipped", skipped)
		console.Infof("Capture logs: \t%d file(s), %d sectors", len(opts.CapturePaths), log.Len())

		chain = append(chain, log)
	}

	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

// Close releases the image, the store and the session log.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Logs is a set of capture logs read as a single stream.
type Logs struct {
	*reader.MultiReadSeeker
	Paths []string
	files []*os.File
}

// OpenLogs opens paths in order and concatenates them.
func OpenLogs(paths []string) (*Logs, error) {
	if len(paths) == 0 {
		return nil, errors.New("no capture log given")
	}

	l := &Logs{Paths: paths}

	readers := make([]io.ReadSeeker, 0, len(paths))
	sizes := make([]int64, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to open capture log %q: %w", p, err)
		}
		l.files = append(l.files, f)

		info, err := f.Stat()
		if err != nil {
			l.Close()
			return nil, err
		}
		readers = append(readers, f)
		sizes = append(sizes, info.Size())
	}

	l.MultiReadSeeker = reader.NewMultiReadSeeker(readers, sizes)
	return l, nil
}

// Describe names the log file and the local offset of a stream offset.
func (l *Logs) Describe(offset int64) string {
	i, local := l.Locate(offset)
	return fmt.Sprintf("%s:%d", l.Paths[i], local)
}

func (l *Logs) Close() error {
	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

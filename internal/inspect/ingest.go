package inspect

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sam36502/disekt/internal/capture"
	"github.com/Sam36502/disekt/internal/logger"
	"github.com/Sam36502/disekt/pkg/pbar"
	fmtutil "github.com/Sam36502/disekt/pkg/util/format"
)

type IngestStats struct {
	Blocks      int   // blocks parsed from the logs
	Written     int   // records written to the store
	Kept        int   // clean records left in place of a dirty block
	Skipped     int   // blocks with an invalid position
	ParseErrors int   // blocks stored with a parse error
	Offset      int64 // log offset the next ingestion resumes from
}

// Ingest parses the capture logs at logPaths into the store at storePath.
// Parsing resumes from the offset saved in the store unless reset is set
// or the logs shrank below it.
func Ingest(storePath string, logPaths []string, reset bool, console *logger.Logger) (IngestStats, error) {
	var stats IngestStats

	store, err := capture.OpenStore(storePath)
	if err != nil {
		return stats, fmt.Errorf("failed to open capture store %q: %w", storePath, err)
	}
	defer store.Close()

	logs, err := OpenLogs(logPaths)
	if err != nil {
		return stats, err
	}
	defer logs.Close()

	offset := store.LogOffset()
	switch {
	case reset:
		offset = 0
	case offset > logs.Size():
		console.Warnf("Saved offset %d is beyond the end of the logs (%d bytes), starting over", offset, logs.Size())
		offset = 0
	}

	console.Infof("Capture store: \t%s", absPath(storePath))
	console.Infof("Capture logs: \t%d file(s), %s", len(logPaths), fmtutil.FormatBytes(logs.Size()))
	if offset > 0 {
		console.Infof("Resuming from \t%s", logs.Describe(offset))
	}

	lr, err := capture.NewLogReader(logs, offset)
	if err != nil {
		return stats, err
	}

	start := time.Now()
	progress := pbar.NewProgressBarState(logs.Size() - offset)
	progress.Out = console.Writer()

	for rec := range lr.Blocks() {
		stats.Blocks++
		progress.BlocksFound = stats.Blocks
		progress.ProcessedBytes = lr.Offset() - offset
		progress.Render(false)

		written, err := store.Put(rec)
		if errors.Is(err, capture.ErrInvalidRecord) {
			console.Debugf("Skipping block at invalid position %s", rec.Position)
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, err
		}

		if !written {
			stats.Kept++
			continue
		}
		stats.Written++
		if rec.ParseError != capture.ParseOK {
			stats.ParseErrors++
		}
	}

	progress.ProcessedBytes = lr.Offset() - offset
	progress.Render(true)
	progress.Finish()

	if err := lr.Err(); err != nil {
		return stats, err
	}

	stats.Offset = lr.Offset()
	if err := store.SetLogOffset(stats.Offset); err != nil {
		return stats, err
	}

	console.Infof("Ingest completed!")
	console.Debugf("Next ingest resumes from \t%s", logs.Describe(stats.Offset))
	console.Infof("Blocks parsed: \t%d", stats.Blocks)
	console.Infof("Records written: \t%d (%d with parse errors)", stats.Written, stats.ParseErrors)
	if stats.Kept > 0 {
		console.Infof("Clean records kept: \t%d", stats.Kept)
	}
	if stats.Skipped > 0 {
		console.Warnf("Invalid positions: \t%d", stats.Skipped)
	}
	console.Infof("Duration: \t%s", FormatDurationHMS(time.Since(start)))
	return stats, nil
}

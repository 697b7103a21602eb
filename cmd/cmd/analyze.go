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
package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Sam36502/disekt/internal/analysis"
	"github.com/Sam36502/disekt/internal/inspect"
	"github.com/Sam36502/disekt/internal/logger"
	"github.com/spf13/cobra"
)

func DefineAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Classify every sector of a disk image and write a report",
		Long: `The 'analyze' command classifies the 683 sectors of a 1541 image, optionally
comparing them with the captures of the transfer that produced it, and writes
a DFXML report listing every file with the sectors holding its data.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunAnalyze,
	}

	addSessionFlags(cmd, true)
	cmd.Flags().StringP("output", "o", "", "The path of the report file")

	return cmd
}

func addSessionFlags(cmd *cobra.Command, sessionLog bool) {
	cmd.Flags().StringSliceP("capture", "c", nil, "text capture logs of the transfer, read in the given order")
	cmd.Flags().StringP("store", "s", "", "binary capture store written by the ingest command")
	cmd.Flags().Bool("ignore-invalid-bam", false, "use a default allocation map when the BAM cannot be read")
	cmd.Flags().Bool("no-log", !sessionLog, "disable the session log")
	cmd.Flags().String("log-dir", "", "directory of the session log")
}

func parseOptions(cmd *cobra.Command) inspect.Options {
	captures, _ := cmd.Flags().GetStringSlice("capture")
	store, _ := cmd.Flags().GetString("store")
	ignoreBAM, _ := cmd.Flags().GetBool("ignore-invalid-bam")
	disableLog, _ := cmd.Flags().GetBool("no-log")
	logDir, _ := cmd.Flags().GetString("log-dir")
	logLevel, _ := cmd.Flags().GetString("log-level")

	return inspect.Options{
		CapturePaths:     captures,
		StorePath:        store,
		IgnoreInvalidBAM: ignoreBAM,
		LogDir:           logDir,
		DisableLog:       disableLog,
		LogLevel:         logger.ParseLevel(logLevel).Slog(),
	}
}

func RunAnalyze(cmd *cobra.Command, args []string) error {
	console := newConsole(cmd)
	opts := parseOptions(cmd)

	console.Info("Starting analysis...")
	console.Infof("Image: \t%s", args[0])

	start := time.Now()

	s, err := inspect.Open(args[0], opts, console)
	if err != nil {
		return err
	}
	defer s.Close()

	reportFile, _ := cmd.Flags().GetString("output")
	if reportFile == "" {
		reportFile = fmt.Sprintf("report_%s.xml", s.ID)
	}

	if err := writeReport(s, reportFile); err != nil {
		return err
	}

	res := s.Analysis

	console.Infof("Disk: \t%q (%d files)", s.Directory.Name(), s.Directory.Len())
	console.Info("Analysis completed!")
	console.Infof("Free sectors: \t%d", res.CountFree)
	console.Infof("In use: \t%d", res.CountInUse)
	console.Infof("Healthy: \t%d", res.CountHealthy)
	console.Infof("Bad: \t%d", res.CountBad)

	fmt.Println()
	printStatusTable(os.Stdout, res)
	fmt.Println()

	console.Infof("Duration: \t%s", inspect.FormatDurationHMS(time.Since(start)))
	console.Infof("Report saved to: \t%s", reportFile)

	if s.LogPath != "" {
		console.Infof("Detailed log: \t%s", s.LogPath)
	}
	return nil
}

// printStatusTable prints how many sectors ended up in each status.
func printStatusTable(out io.Writer, res *analysis.DiskAnalysis) {
	counts := make(map[analysis.Status]int)
	for i := range res.Sectors {
		counts[res.Sectors[i].Status]++
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tSECTORS")
	for st := analysis.StatusUnknown; st < analysis.StatusInvalid; st++ {
		if counts[st] > 0 {
			fmt.Fprintf(w, "%s\t%d\n", st, counts[st])
		}
	}
	w.Flush()
}

func writeReport(s *inspect.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := s.WriteReport(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report %q: %w", path, err)
	}
	return f.Close()
}

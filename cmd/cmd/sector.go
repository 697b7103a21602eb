package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Sam36502/disekt/internal/analysis"
	"github.com/Sam36502/disekt/internal/capture"
	"github.com/Sam36502/disekt/internal/disk"
	"github.com/Sam36502/disekt/internal/inspect"
	"github.com/Sam36502/disekt/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineSectorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sector <image> <track> <sector>",
		Short:        "Show the analysis and the content of a single sector",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         RunSector,
	}

	addSessionFlags(cmd, false)
	return cmd
}

func RunSector(cmd *cobra.Command, args []string) error {
	pos, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}

	s, err := inspect.Open(args[0], parseOptions(cmd), newConsole(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	return printSector(os.Stdout, s, pos)
}

func parsePosition(track, sector string) (disk.Position, error) {
	t, err := strconv.ParseUint(track, 10, 8)
	if err != nil {
		return disk.Position{}, fmt.Errorf("invalid track %q", track)
	}
	s, err := strconv.ParseUint(sector, 10, 8)
	if err != nil {
		return disk.Position{}, fmt.Errorf("invalid sector %q", sector)
	}

	pos := disk.Position{Track: uint8(t), Sector: uint8(s)}
	if !pos.IsValid() {
		return pos, fmt.Errorf("%w: %s", disk.ErrInvalidPosition, pos)
	}
	return pos, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func chainPosition(res *analysis.DiskAnalysis, index int) string {
	if index < 0 {
		return "-"
	}
	return res.Sectors[index].Position.String()
}

func directoryBlock(res *analysis.DiskAnalysis, index int) string {
	blocks := res.DirectoryBlocks()
	for i, b := range blocks {
		if b.Index == index {
			return fmt.Sprintf("block %d/%d", i+1, len(blocks))
		}
	}
	return "outside the chain"
}

func printSector(w io.Writer, s *inspect.Session, pos disk.Position) error {
	res := s.Analysis

	info, err := res.Get(pos)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Sector:      %s (index %d)\n", info.Position, info.Index)
	fmt.Fprintf(w, "Type:        %s\n", info.Type)
	fmt.Fprintf(w, "Status:      %s\n", info.Status)
	fmt.Fprintf(w, "Free:        %s\n", yesNo(info.IsFree))
	fmt.Fprintf(w, "Has data:    %s\n", yesNo(info.HasData))
	if info.IsBlank {
		fmt.Fprintln(w, "Blank:       matches the filler of the disk")
	}

	switch {
	case info.HasDirectoryInfo && info.Entry != nil && info.Type.IsFile():
		fmt.Fprintf(w, "File:        %q block %d/%d\n", info.Entry.Name, info.FileIndex+1, info.Entry.Blocks)
	case info.Type == analysis.TypeDirectory:
		fmt.Fprintf(w, "Directory:   %s, entries %d-%d\n", directoryBlock(res, info.Index), info.DirIndex, info.DirIndex+disk.EntriesPerSector-1)
	}
	fmt.Fprintf(w, "Chain:       prev %s, next %s\n", chainPosition(res, info.Prev), chainPosition(res, info.Next))

	if info.HasTransferInfo {
		fmt.Fprintf(w, "Checksum:    0x%04X (data 0x%04X)\n", info.Checksum, disk.Checksum(info.Data[:]))
		fmt.Fprintf(w, "Disk error:  %s (%d)\n", capture.DiskErrorName(info.DiskError), info.DiskError)
		fmt.Fprintf(w, "Parse error: %s\n", info.ParseError)
	} else {
		fmt.Fprintln(w, "Transfer:    not captured")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Checks:")
	for _, o := range analysis.RunChecks(&info) {
		fmt.Fprintf(w, "  %-20s %s\n", o.Name, o.Result)
	}

	fmt.Fprintln(w)
	return format.HexDump(w, info.Data[:])
}

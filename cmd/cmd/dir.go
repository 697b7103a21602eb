package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Sam36502/disekt/internal/disk"
	"github.com/Sam36502/disekt/internal/inspect"
	"github.com/spf13/cobra"
)

func DefineDirCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dir <image>",
		Short:        "List the directory of a disk image",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunDir,
	}

	addSessionFlags(cmd, false)
	return cmd
}

func RunDir(cmd *cobra.Command, args []string) error {
	s, err := inspect.Open(args[0], parseOptions(cmd), newConsole(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	return printDirectory(os.Stdout, s)
}

// printDirectory prints the directory the way the drive lists it, followed
// by the status of every file.
func printDirectory(w io.Writer, s *inspect.Session) error {
	dir := s.Directory
	header := dir.Header[:]

	_, err := fmt.Fprintf(w, "0 %-18q %s %s\n",
		dir.Name(),
		disk.CleanText(header[18:20]),
		disk.CleanText(header[21:23]),
	)
	if err != nil {
		return err
	}

	objs := inspect.FileObjects(s.Analysis)
	for i, entry := range dir.Entries {
		closed := " "
		if !entry.Closed {
			closed = "*"
		}
		locked := " "
		if entry.Locked {
			locked = "<"
		}

		_, err := fmt.Fprintf(w, "%-5d%-18q%s%s%s %s\n",
			entry.Blocks,
			entry.Name,
			closed,
			entry.Type,
			locked,
			objs[i].Status,
		)
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "%d BLOCKS FREE.\n", dir.BAM.TotalFree())
	return err
}

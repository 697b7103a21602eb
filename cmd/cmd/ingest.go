package cmd

import (
	"github.com/Sam36502/disekt/internal/inspect"
	"github.com/spf13/cobra"
)

func DefineIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <store> <log>...",
		Short: "Parse transfer capture logs into a binary capture store",
		Long: `The 'ingest' command parses one or more text capture logs, read in order as a
single stream, and writes every captured block into the binary store. Parsing
resumes where the previous run stopped, so a log still being written can be
ingested repeatedly.`,
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE:         RunIngest,
	}

	cmd.Flags().Bool("reset", false, "parse the logs from the beginning")
	return cmd
}

func RunIngest(cmd *cobra.Command, args []string) error {
	reset, _ := cmd.Flags().GetBool("reset")

	_, err := inspect.Ingest(args[0], args[1:], reset, newConsole(cmd))
	return err
}

package cmd

import (
	"os"

	"github.com/Sam36502/disekt/internal/env"
	"github.com/Sam36502/disekt/internal/logger"
	"github.com/spf13/cobra"
)

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   env.AppName,
		Short: env.AppName + " - 1541 disk image analysis tool",
	}

	rootCmd.PersistentFlags().String("log-level", "INFO", "minimum level of the messages printed (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(
		DefineAnalyzeCommand(),
		DefineDirCommand(),
		DefineSectorCommand(),
		DefineIngestCommand(),
		DefineMountCommand(),
	)

	return rootCmd.Execute()
}

func newConsole(cmd *cobra.Command) *logger.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logger.New(os.Stdout, logger.ParseLevel(level))
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"envdiff/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "envdiff",
	Short: "Compare and reconcile application environments",
	Long: `envdiff compares the schema, API services and security permissions of
application environments against a reference and can bring the others in
line with it. Environments are live applications, dump files, s3:// dumps
or db:<name> database schemas.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Differences were already reported; only the exit code matters.
		if errors.Is(err, ErrDifferences) {
			os.Exit(1)
		}

		// Console encoding with the development config reads best on a terminal.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

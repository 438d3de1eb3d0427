package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	toolsDir   string
	outputJSON bool
	verbose    bool
	noProgress bool
	noDownload bool
	logToFile  bool
)

// exitCodeError carries a process exit code out of a command.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func (e *exitCodeError) Unwrap() error { return e.err }

// Execute runs the root cobra command. Interrupts cancel the command context
// so in-flight downloads and lock waits unwind and release their locks.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coded *exitCodeError
		if errors.As(err, &coded) {
			os.Exit(coded.code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kidep",
		Short:         "Locate, validate and download the external tools KiCad automation needs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to kidep.yaml (default ./kidep.yaml)")
	flags.StringVar(&toolsDir, "tools-dir", "", "Install root for downloaded tools")
	flags.BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&noProgress, "no-progress", false, "Disable the interactive progress table")
	flags.BoolVar(&noDownload, "no-download", false, "Never download missing tools")
	flags.BoolVar(&logToFile, "log-file", false, "Write a debug trace of the resolution to the logs directory")

	cmd.AddCommand(newDepsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Package cli implements the govreporter command tree.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"govreporter/internal/app"
	"govreporter/internal/config"
)

// Exit codes. Exit is the single place where errors become process status.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitConfig      = 2
	ExitRuntime     = 3
	ExitInterrupted = 130
)

// ErrUsage marks bad invocations: unknown flags, malformed dates, missing
// arguments. ErrInterrupted marks a run stopped by SIGINT/SIGTERM.
var (
	ErrUsage       = errors.New("usage error")
	ErrInterrupted = errors.New("interrupted")
)

// Exit maps an error to the process exit code.
func Exit(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInterrupted):
		return ExitInterrupted
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, config.ErrInvalid):
		return ExitConfig
	}
	return ExitRuntime
}

// Execute loads configuration, runs the command tree and returns the exit
// code for main.
func Execute() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return Exit(err)
	}

	a := app.New(cfg, "govreporter")
	root := NewRootCmd(a)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return Exit(err)
	}
	return ExitOK
}

// NewRootCmd assembles the command tree around the shared application.
func NewRootCmd(a *app.Application) *cobra.Command {
	root := &cobra.Command{
		Use:           "govreporter",
		Short:         "Index US federal legal documents and serve them to LLMs over MCP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	root.AddCommand(
		newServerCmd(a),
		newIngestCmd(a),
		newQueryCmd(a),
		newDeleteCmd(a),
		newInfoCmd(a),
	)
	return root
}

// parseDate validates a YYYY-MM-DD flag value.
func parseDate(flag, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return "", fmt.Errorf("%w: --%s must be YYYY-MM-DD, got %q", ErrUsage, flag, value)
	}
	return value, nil
}

// validateWindow checks both date flags before any network call.
func validateWindow(start, end string) error {
	if start == "" {
		return fmt.Errorf("%w: --start is required", ErrUsage)
	}
	if _, err := parseDate("start", start); err != nil {
		return err
	}
	if _, err := parseDate("end", end); err != nil {
		return err
	}
	if end != "" && start > end {
		return fmt.Errorf("%w: --start %s is after --end %s", ErrUsage, start, end)
	}
	return nil
}

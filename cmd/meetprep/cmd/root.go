// Package cmd provides the CLI commands for meetprep.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/logging"
	"github.com/Aman-CERP/meetprep/internal/profiling"
	"github.com/Aman-CERP/meetprep/pkg/version"
)

// Persistent flag state, reset by NewRootCmd.
var (
	debugMode      bool
	profileOpts    profiling.Options
	profileSession *profiling.Session
	loggingCleanup func()
)

// NewRootCmd creates the root command for the meetprep CLI.
func NewRootCmd() *cobra.Command {
	debugMode = false
	profileOpts = profiling.Options{}

	cmd := &cobra.Command{
		Use:   "meetprep",
		Short: "Find the notes that matter for your next meeting",
		Long: `meetprep indexes a folder of Markdown and text notes and ranks them
against an upcoming meeting: its title, description, attendees and topics.

Run 'meetprep query <dir> --title "..."' for a one-off answer, or
'meetprep serve <dir>' to expose the index to AI assistants over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("meetprep version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.meetprep/logs/")
	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error in CLI form.
func Execute(ctx context.Context) error {
	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, meeterrors.FormatForCLI(err))
	}
	return err
}

func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.ConsoleConfig("warn")
	if debugMode {
		cfg = logging.DebugConfig()
	}
	cleanup, err := logging.Install(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		slog.Info("debug_logging_enabled", slog.String("log_file", cfg.FilePath), slog.String("version", version.Version))
	}

	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profileSession = s
	}
	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	err := profileSession.Stop()
	profileSession = nil

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	if err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/meetprep/internal/async"
	"github.com/Aman-CERP/meetprep/internal/config"
	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/lock"
	"github.com/Aman-CERP/meetprep/internal/output"
)

// statusReport is the JSON form of the status command.
type statusReport struct {
	Root          string               `json:"root"`
	ServerRunning bool                 `json:"server_running"`
	Skipped       int                  `json:"skipped"`
	Index         async.StatusSnapshot `json:"index"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [dir]",
		Short: "Show index status for a corpus",
		Long:  `Build the index for dir, then report its state and whether a meetprep server is already serving the same corpus.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := corpusRoot(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}

			running, err := serverRunning(root)
			if err != nil {
				return err
			}

			m, src, err := buildOnce(cmd.Context(), root, cfg, nil)
			if err != nil {
				return err
			}
			defer m.Stop()

			report := statusReport{
				Root:          src.Root(),
				ServerRunning: running,
				Skipped:       len(src.LastReport().Skipped),
				Index:         m.Status(),
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(report)
			}
			out.Statusf("📁", "%s", report.Root)
			out.IndexStatus(report.Index)
			if report.Skipped > 0 {
				out.Warningf("%d files skipped (run 'meetprep index -v' for details)", report.Skipped)
			}
			if running {
				out.Status("🟢", "A meetprep server is running for this corpus")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}

// serverRunning reports whether another process holds the corpus lock.
func serverRunning(root string) (bool, error) {
	lk, err := lock.ForCorpus(lockDir(), root)
	if err != nil {
		return false, err
	}
	if err := lk.Acquire(); err != nil {
		if meeterrors.GetCode(err) == meeterrors.ErrCodeLockHeld {
			return true, nil
		}
		return false, err
	}
	return false, lk.Release()
}

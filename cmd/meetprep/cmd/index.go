package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/meetprep/internal/async"
	"github.com/Aman-CERP/meetprep/internal/config"
	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/output"
)

func newIndexCmd() *cobra.Command {
	var verbose, progress bool

	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Build the index once and report what was read",
		Long: `Read every note under dir, build the index and report how many notes
were indexed and which files were skipped. Nothing is written to disk;
use it to check a corpus and its configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := corpusRoot(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			var onStatus func(async.StatusSnapshot)
			if progress {
				onStatus = out.Progress
			}

			start := time.Now()
			m, src, err := buildOnce(cmd.Context(), root, cfg, onStatus)
			if err != nil {
				return err
			}
			defer m.Stop()

			status := m.Status()
			out.Successf("Indexed %d notes from %s in %s", status.DocumentCount, src.Root(), time.Since(start).Round(time.Millisecond))

			skipped := src.LastReport().Skipped
			if len(skipped) > 0 {
				out.Warningf("Skipped %d files", len(skipped))
				if verbose {
					for _, err := range skipped {
						if me, ok := meeterrors.As(err); ok && me.Cause != nil {
							out.Statusf("", "%s: %v", me.Message, me.Cause)
							continue
						}
						out.Status("", err.Error())
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List skipped files")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print build progress")
	return cmd
}

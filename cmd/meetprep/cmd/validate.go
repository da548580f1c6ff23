package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/meetprep/internal/config"
	"github.com/Aman-CERP/meetprep/internal/output"
	"github.com/Aman-CERP/meetprep/internal/validation"
)

func newValidateCmd() *cobra.Command {
	var (
		queries  string
		asJSON   bool
		defaults bool
	)

	cmd := &cobra.Command{
		Use:   "validate [dir] --queries FILE",
		Short: "Check that recorded meetings still surface their notes",
		Long: `Build the index for dir and answer every case of a queries file.
Relevance cases list notes that must rank near the top; negative cases
list notes that must not appear. The command fails when any case fails,
which makes it usable after tuning weights or thresholds.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := corpusRoot(args)
			if err != nil {
				return err
			}
			suite, err := validation.LoadSuite(queries)
			if err != nil {
				return err
			}
			var cfg *config.Config
			if !defaults {
				if cfg, err = config.Load(root); err != nil {
					return err
				}
			}

			v, err := validation.NewValidator(cmd.Context(), root, cfg)
			if err != nil {
				return err
			}
			defer v.Close()

			report := v.RunSuite(cmd.Context(), suite)
			out := output.New(cmd.OutOrStdout())
			if asJSON {
				if err := out.JSON(report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}

			if !report.Passed() {
				total := len(report.Relevance) + len(report.Negative)
				return fmt.Errorf("%d of %d cases failed", total-report.RelevancePass-report.NegativePass, total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&queries, "queries", "q", "", "YAML file of validation cases")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Ignore config files and use built-in defaults")
	_ = cmd.MarkFlagRequired("queries")
	return cmd
}

func printReport(out *output.Writer, r *validation.Report) {
	out.Statusf("", "%d notes, index version %d", r.Documents, r.VersionSeq)
	list := func(results []validation.CaseResult) {
		for _, cr := range results {
			label := cr.Case.ID
			if cr.Case.Name != "" {
				label += " " + cr.Case.Name
			}
			switch {
			case cr.Error != "":
				out.Errorf("%s: %s", label, cr.Error)
			case cr.Passed:
				out.Successf("%s (%s)", label, cr.Duration.Round(time.Millisecond))
			default:
				out.Errorf("%s: got [%s]", label, strings.Join(cr.Results, ", "))
				for _, id := range cr.Case.Expected {
					if rank := cr.Ranks[id]; rank == 0 {
						out.Statusf("", "missing %s", id)
					} else {
						out.Statusf("", "%s at rank %d", id, rank)
					}
				}
				for _, id := range cr.Unwanted {
					out.Statusf("", "unwanted %s", id)
				}
			}
		}
	}

	out.Newline()
	out.Statusf("", "Relevance: %d/%d passed", r.RelevancePass, len(r.Relevance))
	list(r.Relevance)
	if len(r.Negative) > 0 {
		out.Newline()
		out.Statusf("", "Negative: %d/%d passed", r.NegativePass, len(r.Negative))
		list(r.Negative)
	}
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/meetprep/internal/config"
	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/match"
	"github.com/Aman-CERP/meetprep/internal/output"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	title       string
	description string
	attendees   []string
	topics      []string
	at          string
	format      string // "text", "json"
	topK        int
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query [dir]",
		Short: "Rank notes against a meeting",
		Long: `Index dir and print the notes most relevant to the described meeting.

Examples:
  meetprep query ~/notes --title "Q3 Planning" --topic roadmap
  meetprep query ~/notes --title "1:1" --attendee "Alice Smith" --at 2026-03-02
  meetprep query ~/notes --description "hiring review" --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Meeting title")
	cmd.Flags().StringVar(&opts.description, "description", "", "Meeting description or agenda")
	cmd.Flags().StringArrayVar(&opts.attendees, "attendee", nil, "Attendee name (repeatable)")
	cmd.Flags().StringArrayVar(&opts.topics, "topic", nil, "Meeting topic or tag (repeatable)")
	cmd.Flags().StringVar(&opts.at, "at", "", "Meeting time, RFC 3339 or YYYY-MM-DD (default now)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Maximum number of matches (default from config)")

	return cmd
}

func (o queryOptions) queryContext() (match.QueryContext, error) {
	q := match.QueryContext{
		Title:       o.title,
		Description: o.description,
		Attendees:   o.attendees,
		Topics:      o.topics,
	}
	if q.IsEmpty() {
		return q, meeterrors.QueryError("describe the meeting with at least one of --title, --description, --attendee or --topic")
	}
	if o.at != "" {
		t, err := match.ParseMeetingTime(o.at)
		if err != nil {
			return q, meeterrors.QueryError(fmt.Sprintf("--at must be RFC 3339 or YYYY-MM-DD, got %q", o.at))
		}
		q.MeetingTime = t
	}
	return q, nil
}

func runQuery(cmd *cobra.Command, args []string, opts queryOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return meeterrors.QueryError(fmt.Sprintf("unknown format %q (use text or json)", opts.format))
	}
	if opts.topK < 0 {
		return meeterrors.QueryError("--top-k must not be negative")
	}
	q, err := opts.queryContext()
	if err != nil {
		return err
	}

	root, err := corpusRoot(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if opts.topK > 0 {
		cfg.Matching.TopK = opts.topK
	}

	m, _, err := buildOnce(cmd.Context(), root, cfg, nil)
	if err != nil {
		return err
	}
	defer m.Stop()

	res := m.Query(cmd.Context(), q)
	slog.Info("query_complete", slog.Int("matches", len(res.Matches)), slog.Uint64("version", res.VersionSeq))

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		return out.JSON(res)
	}
	out.Matches(res)
	return nil
}

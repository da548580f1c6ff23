package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/meetprep/internal/config"
	"github.com/Aman-CERP/meetprep/internal/corpus"
	"github.com/Aman-CERP/meetprep/internal/engine"
	"github.com/Aman-CERP/meetprep/internal/lock"
	"github.com/Aman-CERP/meetprep/internal/logging"
	"github.com/Aman-CERP/meetprep/internal/mcp"
	"github.com/Aman-CERP/meetprep/internal/metrics"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	watch       bool
	metricsAddr string
	transport   string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve meeting context to AI assistants over MCP",
		Long: `Start an MCP server on stdio exposing the meeting_context and
index_status tools for the notes under dir. The index is built in the
background; queries made before it is ready report index_not_ready.

Logs go to ~/.meetprep/logs/meetprep.log because stdout carries the protocol.`,
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
			if cmd.Flags().Changed("watch") {
				cfg.Index.Watch = opts.watch
			}
			if opts.metricsAddr != "" {
				cfg.Server.MetricsAddr = opts.metricsAddr
			}
			return runServe(cmd.Context(), root, cfg, opts.transport)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-index when notes change (default from config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9102")
	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "MCP transport (stdio)")

	return cmd
}

func lockDir() string {
	return filepath.Join(logging.DataDir(), "locks")
}

func runServe(ctx context.Context, root string, cfg *config.Config, transport string) error {
	lk, err := lock.ForCorpus(lockDir(), root)
	if err != nil {
		return err
	}
	if err := lk.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lk.Release() }()

	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	if loggingCleanup != nil {
		loggingCleanup()
	}
	loggingCleanup, err = logging.Install(logging.ServeConfig(level))
	if err != nil {
		return err
	}

	src, err := corpus.NewDirSource(root, cfg.DirOptions())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := engine.New(src, cfg.EngineConfig())
	m.Start(ctx)
	defer m.Stop()

	srv, err := mcp.NewServer(m, src.Root())
	if err != nil {
		return err
	}

	slog.Info("serve_started",
		slog.String("root", src.Root()),
		slog.Bool("watch", cfg.Index.Watch),
		slog.String("metrics_addr", cfg.Server.MetricsAddr),
		slog.String("lock", lk.Path()))

	g, gctx := errgroup.WithContext(ctx)
	if addr := cfg.Server.MetricsAddr; addr != "" {
		g.Go(func() error { return metrics.Serve(gctx, addr) })
	}
	g.Go(func() error {
		// The client closing stdin ends the session and the metrics listener.
		defer cancel()
		return srv.Serve(gctx, transport)
	})
	return g.Wait()
}

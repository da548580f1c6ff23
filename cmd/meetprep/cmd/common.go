package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/Aman-CERP/meetprep/internal/async"
	"github.com/Aman-CERP/meetprep/internal/config"
	"github.com/Aman-CERP/meetprep/internal/corpus"
	"github.com/Aman-CERP/meetprep/internal/engine"
	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
)

// corpusRoot returns the directory argument, defaulting to the working
// directory, after checking it is a readable directory.
func corpusRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", meeterrors.CorpusUnavailableError(root, err)
	}
	if !info.IsDir() {
		return "", meeterrors.CorpusUnavailableError(root, errors.New("not a directory"))
	}
	return root, nil
}

// buildOnce indexes root and waits for the first version. Watching is off;
// the caller must Stop the returned manager. progress, when set, receives
// every status change until the version is ready.
func buildOnce(ctx context.Context, root string, cfg *config.Config, progress func(async.StatusSnapshot)) (*engine.Manager, *corpus.DirSource, error) {
	src, err := corpus.NewDirSource(root, cfg.DirOptions())
	if err != nil {
		return nil, nil, err
	}

	ec := cfg.EngineConfig()
	ec.Watch = false
	m := engine.New(src, ec)

	if progress != nil {
		ch, cancel := m.Subscribe()
		done := make(chan struct{})
		go func() {
			defer close(done)
			for snap := range ch {
				progress(snap)
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	start := time.Now()
	m.Start(ctx)
	if err := m.WaitReady(ctx); err != nil {
		m.Stop()
		return nil, nil, err
	}
	slog.Debug("index_ready",
		slog.String("root", src.Root()),
		slog.Int("documents", m.Status().DocumentCount),
		slog.Duration("elapsed", time.Since(start)))
	return m, src, nil
}

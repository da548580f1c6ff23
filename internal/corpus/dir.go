package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/watcher"
)

// DefaultExtensions are the file types a DirSource reads.
var DefaultExtensions = []string{".md", ".markdown", ".txt"}

// DefaultMaxFileSize skips anything larger than 10MB.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// DirOptions configures a DirSource.
type DirOptions struct {
	Extensions  []string
	Exclude     []string // path.Match patterns against the slash path
	MaxFileSize int64
	Watch       watcher.Options
}

// DirSource reads notes from a directory tree.
type DirSource struct {
	root string
	opts DirOptions
	exts map[string]struct{}

	mu     sync.Mutex
	report ListReport
}

var (
	_ Source    = (*DirSource)(nil)
	_ Watchable = (*DirSource)(nil)
	_ Reporter  = (*DirSource)(nil)
)

// NewDirSource creates a source rooted at root.
func NewDirSource(root string, opts DirOptions) (*DirSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	opts.Extensions = append([]string(nil), opts.Extensions...)
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for i, e := range opts.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		opts.Extensions[i] = e
		exts[e] = struct{}{}
	}

	return &DirSource{root: abs, opts: opts, exts: exts}, nil
}

// Root returns the absolute corpus root.
func (s *DirSource) Root() string {
	return s.root
}

// List walks the root and parses every corpus file.
func (s *DirSource) List(ctx context.Context) ([]*Document, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, meeterrors.CorpusUnavailableError(s.root, err)
	}
	if !info.IsDir() {
		return nil, meeterrors.CorpusUnavailableError(s.root, fmt.Errorf("not a directory"))
	}

	var (
		docs    []*Document
		skipped []error
	)
	walkErr := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == s.root {
				return err
			}
			skipped = append(skipped, meeterrors.DocumentReadError(s.relID(p), err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		id := s.relID(p)
		if d.IsDir() {
			if id != "." && (strings.HasPrefix(d.Name(), ".") || s.excluded(id)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.accepts(id) {
			return nil
		}

		doc, err := s.read(p, id)
		if err != nil {
			skipped = append(skipped, err)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, meeterrors.CorpusUnavailableError(s.root, walkErr)
	}

	for _, err := range skipped {
		slog.Warn("document_skipped", meeterrors.LogAttrs(err)...)
	}

	s.mu.Lock()
	s.report = ListReport{Skipped: skipped}
	s.mu.Unlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// LastReport returns what the most recent List skipped.
func (s *DirSource) LastReport() ListReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Load reads one document by ID.
func (s *DirSource) Load(ctx context.Context, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := path.Clean(id)
	if clean == "." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return nil, meeterrors.DocumentReadError(id, fmt.Errorf("path escapes corpus root"))
	}
	return s.read(filepath.Join(s.root, filepath.FromSlash(clean)), clean)
}

func (s *DirSource) read(p, id string) (*Document, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, meeterrors.DocumentReadError(id, err)
	}
	if info.Size() > s.opts.MaxFileSize {
		return nil, meeterrors.New(meeterrors.ErrCodeDocumentTooLarge,
			fmt.Sprintf("document %s is %d bytes, limit %d", id, info.Size(), s.opts.MaxFileSize), nil).
			WithDetail("document", id)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, meeterrors.DocumentReadError(id, err)
	}

	doc, err := Parse(id, data, info.ModTime())
	if err != nil {
		return nil, meeterrors.DocumentReadError(id, err)
	}
	return doc, nil
}

func (s *DirSource) relID(p string) string {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func (s *DirSource) accepts(id string) bool {
	if _, ok := s.exts[strings.ToLower(path.Ext(id))]; !ok {
		return false
	}
	if strings.HasPrefix(path.Base(id), ".") {
		return false
	}
	return !s.excluded(id)
}

func (s *DirSource) excluded(id string) bool {
	for _, pattern := range s.opts.Exclude {
		if ok, _ := path.Match(pattern, id); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(id)); ok {
			return true
		}
	}
	return false
}

// Watch streams corpus changes from a file watcher.
func (s *DirSource) Watch(ctx context.Context) (<-chan []Change, error) {
	opts := s.opts.Watch
	opts.Extensions = s.opts.Extensions

	w, err := watcher.New(opts)
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	go func() {
		if err := w.Run(ctx, s.root); err != nil {
			slog.Error("watcher_stopped", slog.String("root", s.root), slog.String("error", err.Error()))
		}
	}()

	go func() {
		for err := range w.Errors() {
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}()

	out := make(chan []Change, 16)
	go func() {
		defer close(out)
		for batch := range w.Batches() {
			changes := s.translate(ctx, batch)
			if len(changes) == 0 {
				continue
			}
			select {
			case out <- changes:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// translate turns file events into document changes, loading new content.
func (s *DirSource) translate(ctx context.Context, events []watcher.Event) []Change {
	changes := make([]Change, 0, len(events))
	for _, ev := range events {
		if ev.Dir {
			// whole subtrees moved or batches were dropped; individual file
			// events may be missing
			if ev.Op != watcher.Modified {
				changes = append(changes, Change{Kind: ChangeRescan, ID: ev.Path})
			}
			continue
		}
		if s.excluded(ev.Path) {
			continue
		}

		switch ev.Op {
		case watcher.Removed, watcher.Moved:
			changes = append(changes, Change{Kind: ChangeRemoved, ID: ev.Path})
		case watcher.Created, watcher.Modified:
			doc, err := s.Load(ctx, ev.Path)
			if err != nil {
				slog.Warn("document_skipped", meeterrors.LogAttrs(err)...)
				// an unreadable file must not keep serving stale content
				changes = append(changes, Change{Kind: ChangeRemoved, ID: ev.Path})
				continue
			}
			kind := ChangeModified
			if ev.Op == watcher.Created {
				kind = ChangeAdded
			}
			changes = append(changes, Change{Kind: kind, ID: ev.Path, Document: doc})
		}
	}
	return changes
}

// Package lock keeps a single meetprep server per corpus using an advisory
// file lock from gofrs/flock.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
)

// CorpusLock is an exclusive lock tied to one corpus root.
type CorpusLock struct {
	root   string
	path   string
	flock  *flock.Flock
	locked bool
}

// ForCorpus returns the lock for root, stored under dir as <hash>.lock.
// The root is made absolute so different spellings of a path share a lock.
func ForCorpus(dir, root string) (*CorpusLock, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve corpus root: %w", err)
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	path := filepath.Join(dir, hex.EncodeToString(sum[:8])+".lock")
	return &CorpusLock{root: abs, path: path, flock: flock.New(path)}, nil
}

// Acquire takes the lock without blocking. When another process holds it,
// the error carries ErrCodeLockHeld.
func (l *CorpusLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return meeterrors.New(meeterrors.ErrCodeLockHeld,
			fmt.Sprintf("another meetprep server is running for %s", l.root), nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop the other server or remove the lock file if no server is running")
	}
	l.locked = true
	return nil
}

// Release drops the lock. It is safe to call more than once.
func (l *CorpusLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *CorpusLock) Path() string {
	return l.path
}

// Held reports whether this lock is currently held.
func (l *CorpusLock) Held() bool {
	return l.locked
}

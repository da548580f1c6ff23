package logging

import (
	"os"
	"path/filepath"
)

// DataDir is meetprep's per-user state directory, ~/.meetprep.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".meetprep")
	}
	return filepath.Join(home, ".meetprep")
}

// DefaultLogDir returns ~/.meetprep/logs.
func DefaultLogDir() string {
	return filepath.Join(DataDir(), "logs")
}

// DefaultLogPath returns the log file used by --debug and serve.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "meetprep.log")
}

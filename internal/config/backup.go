package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/meetprep/configs"
)

const (
	// MaxBackups is how many user config backups are kept.
	MaxBackups = 3

	backupSuffix = ".bak."
)

// InitUserConfig writes the commented user template to the user config path.
// An existing file is only replaced when force is set, and is backed up first.
func InitUserConfig(force bool) (path, backup string, err error) {
	path = GetUserConfigPath()
	if UserConfigExists() {
		if !force {
			return path, "", fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if backup, err = BackupUserConfig(); err != nil {
			return path, "", err
		}
	}
	if err := writeTemplate(path, configs.UserConfigTemplate); err != nil {
		return path, backup, err
	}
	return path, backup, nil
}

// InitCorpusConfig writes the commented corpus template to root. An existing
// file is only replaced when force is set.
func InitCorpusConfig(root string, force bool) (string, error) {
	path := filepath.Join(root, CorpusConfigName)
	if fileExists(path) && !force {
		return path, fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}
	return path, writeTemplate(path, configs.CorpusConfigTemplate)
}

func writeTemplate(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// BackupUserConfig copies the user config to a timestamped sibling and prunes
// all but the newest MaxBackups. It returns "" when there is nothing to copy.
func BackupUserConfig() (string, error) {
	path := GetUserConfigPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	backup := path + backupSuffix + time.Now().Format("20060102-150405.000")
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	backups, err := ListUserConfigBackups()
	if err == nil && len(backups) > MaxBackups {
		for _, old := range backups[MaxBackups:] {
			_ = os.Remove(old)
		}
	}
	return backup, nil
}

// ListUserConfigBackups returns backup paths, newest first.
func ListUserConfigBackups() ([]string, error) {
	path := GetUserConfigPath()
	entries, err := os.ReadDir(filepath.Dir(path))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	prefix := filepath.Base(path) + backupSuffix
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(filepath.Dir(path), e.Name()))
		}
	}
	// Timestamps sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

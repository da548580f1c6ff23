// Package config loads meetprep settings from defaults, the user config
// file, the corpus config file and MEETPREP_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/meetprep/internal/corpus"
	"github.com/Aman-CERP/meetprep/internal/engine"
	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/match"
	"github.com/Aman-CERP/meetprep/internal/rank"
	"github.com/Aman-CERP/meetprep/internal/watcher"
)

// CorpusConfigName is the per-corpus config file, looked up in the corpus root.
const CorpusConfigName = ".meetprep.yaml"

// Config is the complete meetprep configuration.
type Config struct {
	Version  int               `yaml:"version" json:"version"`
	Corpus   CorpusConfig      `yaml:"corpus" json:"corpus"`
	Weights  rank.WeightConfig `yaml:"weights" json:"weights"`
	Matching MatchingConfig    `yaml:"matching" json:"matching"`
	Index    IndexConfig       `yaml:"index" json:"index"`
	Server   ServerConfig      `yaml:"server" json:"server"`
}

// CorpusConfig selects which files are read.
type CorpusConfig struct {
	Extensions  []string `yaml:"extensions" json:"extensions"`
	Exclude     []string `yaml:"exclude" json:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size" json:"max_file_size"`
}

// MatchingConfig tunes scoring and result shaping.
type MatchingConfig struct {
	Threshold         float64 `yaml:"threshold" json:"threshold"`
	FieldThreshold    float64 `yaml:"field_threshold" json:"field_threshold"`
	TopK              int     `yaml:"top_k" json:"top_k"`
	HalfLifeDays      float64 `yaml:"half_life_days" json:"half_life_days"`
	ContentTokenLimit int     `yaml:"content_token_limit" json:"content_token_limit"`
	SnippetLength     int     `yaml:"snippet_length" json:"snippet_length"`
	MaxSnippets       int     `yaml:"max_snippets" json:"max_snippets"`
}

// IndexConfig tunes the background index lifecycle.
type IndexConfig struct {
	BatchSize    int    `yaml:"batch_size" json:"batch_size"`
	SoftDeadline string `yaml:"soft_deadline" json:"soft_deadline"`
	Watch        bool   `yaml:"watch" json:"watch"`
	Debounce     string `yaml:"debounce" json:"debounce"`
	// CacheSize bounds the query result cache; 0 disables it.
	CacheSize    int `yaml:"cache_size" json:"cache_size"`
	QueryWorkers int `yaml:"query_workers" json:"query_workers"`
}

// ServerConfig configures the long-running serve command.
type ServerConfig struct {
	LogLevel    string `yaml:"log_level" json:"log_level"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Extensions:  append([]string(nil), corpus.DefaultExtensions...),
			MaxFileSize: corpus.DefaultMaxFileSize,
		},
		Weights: rank.DefaultWeights(),
		Matching: MatchingConfig{
			Threshold:         rank.DefaultThreshold,
			FieldThreshold:    rank.DefaultFieldThreshold,
			TopK:              rank.DefaultTopK,
			HalfLifeDays:      match.DefaultHalfLifeDays,
			ContentTokenLimit: match.DefaultContentTokenLimit,
			SnippetLength:     rank.DefaultSnippetLength,
			MaxSnippets:       rank.DefaultMaxSnippets,
		},
		Index: IndexConfig{
			BatchSize:    engine.DefaultBatchSize,
			SoftDeadline: engine.DefaultSoftDeadline.String(),
			Debounce:     watcher.DefaultOptions().DebounceWindow.String(),
			CacheSize:    engine.DefaultCacheSize,
			QueryWorkers: engine.DefaultQueryWorkers,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// GetUserConfigPath returns the user config file path:
// $XDG_CONFIG_HOME/meetprep/config.yaml, else ~/.config/meetprep/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "meetprep", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "meetprep", "config.yaml")
	}
	return filepath.Join(home, ".config", "meetprep", "config.yaml")
}

// UserConfigExists reports whether the user config file exists.
func UserConfigExists() bool {
	_, err := os.Stat(GetUserConfigPath())
	return err == nil
}

// Load builds the configuration for the corpus at root, in increasing
// precedence:
//  1. Built-in defaults
//  2. User config ($XDG_CONFIG_HOME/meetprep/config.yaml)
//  3. Corpus config (<root>/.meetprep.yaml)
//  4. Environment variables (MEETPREP_*)
//
// Weights are sanitized rather than rejected.
func Load(root string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if root != "" {
		if path := filepath.Join(root, CorpusConfigName); fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.Weights = cfg.Weights.Sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over c. Keys absent from the file keep their
// current value, so an explicit 0 weight is honoured.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return meeterrors.ConfigError(fmt.Sprintf("read config file %s", path), err)
	}

	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return meeterrors.ConfigError(fmt.Sprintf("parse config file %s", path), err).
			WithDetail("path", path)
	}
	*c = next
	return nil
}

func (c *Config) applyEnvOverrides() {
	floats := map[string]*float64{
		"MEETPREP_WEIGHT_TITLE":     &c.Weights.Title,
		"MEETPREP_WEIGHT_CONTENT":   &c.Weights.Content,
		"MEETPREP_WEIGHT_TAGS":      &c.Weights.Tags,
		"MEETPREP_WEIGHT_ATTENDEES": &c.Weights.Attendees,
		"MEETPREP_WEIGHT_LEXICAL":   &c.Weights.LexicalBonus,
		"MEETPREP_WEIGHT_RECENCY":   &c.Weights.RecencyBonus,
		"MEETPREP_THRESHOLD":        &c.Matching.Threshold,
		"MEETPREP_HALF_LIFE_DAYS":   &c.Matching.HalfLifeDays,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				slog.Warn("config_env_ignored", slog.String("key", key), slog.String("value", v))
				continue
			}
			*dst = f
		}
	}

	if v := os.Getenv("MEETPREP_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Matching.TopK = n
		} else {
			slog.Warn("config_env_ignored", slog.String("key", "MEETPREP_TOP_K"), slog.String("value", v))
		}
	}
	if v := os.Getenv("MEETPREP_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Index.Watch = b
		}
	}
	if v := os.Getenv("MEETPREP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("MEETPREP_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
}

// Validate rejects structurally invalid settings. Weights are never
// rejected; they are clamped by Load.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return meeterrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if len(c.Corpus.Extensions) == 0 {
		return invalid("corpus.extensions must not be empty")
	}
	if c.Corpus.MaxFileSize <= 0 {
		return invalid("corpus.max_file_size must be positive, got %d", c.Corpus.MaxFileSize)
	}

	m := c.Matching
	if m.Threshold < 0 || m.Threshold > 1 {
		return invalid("matching.threshold must be between 0 and 1, got %g", m.Threshold)
	}
	if m.FieldThreshold < 0 || m.FieldThreshold > 1 {
		return invalid("matching.field_threshold must be between 0 and 1, got %g", m.FieldThreshold)
	}
	if m.TopK <= 0 {
		return invalid("matching.top_k must be positive, got %d", m.TopK)
	}
	if m.HalfLifeDays <= 0 {
		return invalid("matching.half_life_days must be positive, got %g", m.HalfLifeDays)
	}
	if m.ContentTokenLimit <= 0 || m.SnippetLength <= 0 || m.MaxSnippets <= 0 {
		return invalid("matching.content_token_limit, snippet_length and max_snippets must be positive")
	}

	if c.Index.BatchSize <= 0 {
		return invalid("index.batch_size must be positive, got %d", c.Index.BatchSize)
	}
	if c.Index.QueryWorkers <= 0 {
		return invalid("index.query_workers must be positive, got %d", c.Index.QueryWorkers)
	}
	if _, err := parsePositiveDuration(c.Index.SoftDeadline); err != nil {
		return invalid("index.soft_deadline: %v", err)
	}
	if _, err := parsePositiveDuration(c.Index.Debounce); err != nil {
		return invalid("index.debounce: %v", err)
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	return nil
}

// EngineConfig converts the settings for engine.New.
func (c *Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.BatchSize = c.Index.BatchSize
	cfg.SoftDeadline, _ = parsePositiveDuration(c.Index.SoftDeadline)
	cfg.CacheSize = c.Index.CacheSize
	if cfg.CacheSize == 0 {
		cfg.CacheSize = -1
	}
	cfg.QueryWorkers = c.Index.QueryWorkers
	cfg.Watch = c.Index.Watch
	cfg.Weights = c.Weights.Sanitize()
	cfg.Matching = match.Config{
		HalfLifeDays:      c.Matching.HalfLifeDays,
		ContentTokenLimit: c.Matching.ContentTokenLimit,
	}
	cfg.Ranking = rank.Config{
		Threshold:      c.Matching.Threshold,
		FieldThreshold: c.Matching.FieldThreshold,
		TopK:           c.Matching.TopK,
		SnippetLength:  c.Matching.SnippetLength,
		MaxSnippets:    c.Matching.MaxSnippets,
	}
	return cfg
}

// DirOptions converts the settings for corpus.NewDirSource.
func (c *Config) DirOptions() corpus.DirOptions {
	debounce, _ := parsePositiveDuration(c.Index.Debounce)
	return corpus.DirOptions{
		Extensions:  c.Corpus.Extensions,
		Exclude:     c.Corpus.Exclude,
		MaxFileSize: c.Corpus.MaxFileSize,
		Watch:       watcher.Options{DebounceWindow: debounce},
	}
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

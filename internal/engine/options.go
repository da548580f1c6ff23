package engine

import (
	"time"

	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/index"
	"github.com/Aman-CERP/meetprep/internal/match"
	"github.com/Aman-CERP/meetprep/internal/rank"
	"github.com/Aman-CERP/meetprep/internal/similarity"
)

// Default lifecycle settings.
const (
	DefaultBatchSize    = 10
	DefaultSoftDeadline = 60 * time.Second
	DefaultCacheSize    = 256
	DefaultQueryWorkers = 8
)

// Config holds the manager settings.
type Config struct {
	// BatchSize is the number of documents applied to the standby index
	// between checks for new requests.
	BatchSize int

	// SoftDeadline logs a warning when a build runs longer. The build is
	// not interrupted.
	SoftDeadline time.Duration

	// CacheSize bounds the query result cache. Negative disables it.
	CacheSize int

	// QueryWorkers bounds per-query scoring parallelism.
	QueryWorkers int

	// Watch subscribes to the source when it supports change events.
	Watch bool

	Matching match.Config
	Ranking  rank.Config
	Weights  rank.WeightConfig

	// Retry governs corpus enumeration retries.
	Retry meeterrors.RetryConfig
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:    DefaultBatchSize,
		SoftDeadline: DefaultSoftDeadline,
		CacheSize:    DefaultCacheSize,
		QueryWorkers: DefaultQueryWorkers,
		Matching:     match.DefaultConfig(),
		Ranking:      rank.DefaultConfig(),
		Weights:      rank.DefaultWeights(),
		Retry:        meeterrors.DefaultRetryConfig(),
	}
}

// WithDefaults fills unset fields. Weights are kept as given; all zero
// weights rank by the unweighted mean of the signals.
func (c Config) WithDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.SoftDeadline <= 0 {
		c.SoftDeadline = DefaultSoftDeadline
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.QueryWorkers <= 0 {
		c.QueryWorkers = DefaultQueryWorkers
	}
	c.Matching = c.Matching.WithDefaults()
	c.Ranking = c.Ranking.WithDefaults()
	c.Weights = c.Weights.Sanitize()
	return c
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for queries without a meeting time.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIndexFactory overrides how the two token indexes are created.
func WithIndexFactory(f func() (index.TokenIndex, error)) Option {
	return func(m *Manager) {
		if f != nil {
			m.newIndex = f
		}
	}
}

// WithSimilarity replaces the engine behind the title and content signals.
func WithSimilarity(e similarity.Engine) Option {
	return func(m *Manager) {
		m.matcher = match.New(m.cfg.Matching, match.WithSimilarity(e))
	}
}

package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/match"
	"github.com/Aman-CERP/meetprep/internal/metrics"
	"github.com/Aman-CERP/meetprep/internal/rank"
)

// Result is the answer to one meeting-context query. Matches is never nil.
// Cached results are shared, so callers must not modify Matches.
type Result struct {
	Matches       []rank.ContextMatch `json:"matches"`
	IndexNotReady bool                `json:"index_not_ready"`
	VersionSeq    uint64              `json:"version_seq"`
}

// Query ranks the documents of the latest published version against q. It
// never fails: before the first build it reports IndexNotReady, and an empty
// meeting context yields no matches.
func (m *Manager) Query(ctx context.Context, q match.QueryContext) Result {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.QueriesTotal.WithLabelValues(outcome).Inc()
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	v := m.acquire()
	if v == nil {
		outcome = "not_ready"
		return Result{Matches: []rank.ContextMatch{}, IndexNotReady: true}
	}
	defer v.release()

	empty := Result{Matches: []rank.ContextMatch{}, VersionSeq: v.seq}
	if q.IsEmpty() {
		outcome = "empty"
		slog.Debug("query_rejected", meeterrors.LogAttrs(meeterrors.QueryError("meeting context has no title, description, attendees or topics"))...)
		return empty
	}

	w := m.Weights()
	now := m.now()
	key := cacheKey(v.seq, q, w, now)
	if m.cache != nil {
		if cached, ok := m.cache.Get(key); ok {
			metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
			return cached
		}
		metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
	}

	matches, err := m.score(ctx, v, match.Prepare(q, now), w)
	if err != nil {
		outcome = "error"
		slog.Warn("query_failed", slog.Uint64("version", v.seq), slog.String("error", err.Error()))
		return empty
	}

	res := Result{Matches: matches, VersionSeq: v.seq}
	if m.cache != nil {
		m.cache.Add(key, res)
	}
	slog.Debug("query_served",
		slog.Uint64("version", v.seq),
		slog.Int("candidates", v.Len()),
		slog.Int("matches", len(matches)),
		slog.Duration("elapsed", time.Since(start)))
	return res
}

// score computes signals for every document of v in parallel and ranks them.
func (m *Manager) score(ctx context.Context, v *Version, q match.PreparedQuery, w rank.WeightConfig) ([]rank.ContextMatch, error) {
	if v.Len() == 0 {
		return []rank.ContextMatch{}, nil
	}

	lexical, err := m.matcher.Lexical(ctx, v.idx, q)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Fall back to the similarity signals alone.
		slog.Warn("lexical_signal_unavailable", meeterrors.LogAttrs(err)...)
		lexical = nil
	}

	candidates := make([]rank.Candidate, len(v.ids))
	workers := m.cfg.QueryWorkers
	chunk := (len(v.ids) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(v.ids); lo += chunk {
		hi := min(lo+chunk, len(v.ids))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				id := v.ids[i]
				e := v.entries[id]
				candidates[i] = rank.Candidate{Entry: e, Signals: m.matcher.Signals(q, e, lexical[id])}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return m.ranker.Rank(candidates, w, q), nil
}

// clockBucket is how long a query without a meeting time may be served
// from the cache before recency is computed again.
const clockBucket = time.Hour

func cacheKey(seq uint64, q match.QueryContext, w rank.WeightConfig, now time.Time) string {
	key := strconv.FormatUint(seq, 10) + "\x00" + q.Key() + "\x00" + w.Key()
	if q.MeetingTime.IsZero() {
		key += "\x00" + now.UTC().Truncate(clockBucket).Format(time.RFC3339)
	}
	return key
}

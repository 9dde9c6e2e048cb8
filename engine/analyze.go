package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"borrow_analytics/analysis"
	"borrow_analytics/metrics"
	"borrow_analytics/models"

	"github.com/cespare/xxhash/v2"
)

// AnalyzeSingleItem returns the item's borrow timeline, clipped to r when set.
func (e *Engine) AnalyzeSingleItem(ctx context.Context, mode analysis.Mode, code string, r *models.TimeRange) models.AnalysisResult {
	key := cacheKey(models.KindSingleItem, mode, strings.ToUpper(strings.TrimSpace(code)), rangeKey(r))
	return e.run(ctx, models.KindSingleItem, mode, key, func(sc *analysis.Scope) models.AnalysisResult {
		return e.analyzer.SingleItem(sc, code, r)
	})
}

// AnalyzeTopN ranks items per calendar bucket.
func (e *Engine) AnalyzeTopN(ctx context.Context, mode analysis.Mode, q analysis.TopNQuery) models.AnalysisResult {
	key := cacheKey(models.KindTopN, mode,
		strings.ToLower(strings.TrimSpace(q.Category)), fmt.Sprint(q.N), string(q.Granularity),
		strings.ToLower(q.NameFilter), string(q.Metric), rangeKey(q.Range))
	return e.run(ctx, models.KindTopN, mode, key, func(sc *analysis.Scope) models.AnalysisResult {
		return e.analyzer.TopN(sc, q)
	})
}

// AnalyzeDuration reports how much of r the item spent borrowed.
func (e *Engine) AnalyzeDuration(ctx context.Context, mode analysis.Mode, code string, r models.TimeRange) models.AnalysisResult {
	key := cacheKey(models.KindOccupancy, mode, strings.ToUpper(strings.TrimSpace(code)), rangeKey(&r))
	return e.run(ctx, models.KindOccupancy, mode, key, func(sc *analysis.Scope) models.AnalysisResult {
		return e.analyzer.Occupancy(sc, code, r)
	})
}

// run resolves one analysis against the published snapshot. Results are
// cached under the engine's namespace for that snapshot; cache errors only
// cost a recomputation.
func (e *Engine) run(ctx context.Context, kind models.ResultKind, mode analysis.Mode, key string, fn func(*analysis.Scope) models.AnalysisResult) models.AnalysisResult {
	began := time.Now()
	snap := e.store.Current()
	version := snap.Version()
	ns := e.namespace(version)

	if err := ctx.Err(); err != nil {
		metrics.ObserveAnalysis(string(kind), false, time.Since(began))
		return analysis.Failed(kind, mode, version, err)
	}

	if res, hit, err := e.cache.Get(ctx, ns, key); err != nil {
		e.log.Debug("result cache get failed", slog.String("key", key), slog.Any("err", err))
	} else if hit {
		metrics.ObserveCache(true)
		metrics.ObserveAnalysis(string(kind), res.OK, time.Since(began))
		return res
	} else {
		metrics.ObserveCache(false)
	}

	res := fn(e.filter.Apply(snap, mode))
	if err := ctx.Err(); err != nil {
		metrics.ObserveAnalysis(string(kind), false, time.Since(began))
		return analysis.Failed(kind, mode, version, err)
	}
	// cancelled results are never cached
	if res.OK || res.Code != models.FailCancelled {
		if err := e.cache.Put(ctx, ns, key, res); err != nil {
			e.log.Debug("result cache put failed", slog.String("key", key), slog.Any("err", err))
		}
	}
	metrics.ObserveAnalysis(string(kind), res.OK, time.Since(began))
	return res
}

func cacheKey(kind models.ResultKind, mode analysis.Mode, parts ...string) string {
	h := xxhash.New()
	_, _ = h.WriteString(string(kind))
	_, _ = h.WriteString("|" + string(mode))
	for _, p := range parts {
		_, _ = h.WriteString("|" + p)
	}
	return fmt.Sprintf("%s:%016x", kind, h.Sum64())
}

func rangeKey(r *models.TimeRange) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%d-%d", r.Start.UnixNano(), r.End.UnixNano())
}

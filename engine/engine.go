package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"borrow_analytics/analysis"
	"borrow_analytics/cache"
	"borrow_analytics/catalog"
	"borrow_analytics/metrics"
	"borrow_analytics/models"
	"borrow_analytics/normalize"
	"borrow_analytics/store"

	"github.com/google/uuid"
)

var ErrCorruptSnapshot = errors.New("corrupt persisted snapshot")

// RecordRepository persists the deduplicated record set between runs.
type RecordRepository interface {
	SaveRecords(ctx context.Context, recs []models.BorrowRecord) error
	LoadRecords(ctx context.Context) ([]models.BorrowRecord, error)
}

// ResultCache holds analysis results grouped by namespace. A namespace
// names one snapshot of one engine instance; see Engine.namespace.
type ResultCache interface {
	Get(ctx context.Context, ns, key string) (models.AnalysisResult, bool, error)
	Put(ctx context.Context, ns, key string, res models.AnalysisResult) error
	Invalidate(ctx context.Context, ns string) error
}

// Config carries the analysis settings the engine is built from.
type Config struct {
	Location          *time.Location
	Mapping           catalog.Mapping
	Periods           []analysis.Period
	InventoryCategory string
	Columns           map[models.Source]normalize.Columns
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option         { return func(e *Engine) { e.log = l } }
func WithRepository(r RecordRepository) Option { return func(e *Engine) { e.repo = r } }
func WithCache(c ResultCache) Option           { return func(e *Engine) { e.cache = c } }
func WithClock(now func() time.Time) Option    { return func(e *Engine) { e.now = now } }

// maxRejections bounds the per-row detail kept in an ingest report.
const maxRejections = 100

// Engine is the entry point used by the HTTP layer and the CLI. Ingest is
// single-writer; analyses read the published snapshot without locking.
type Engine struct {
	store    *store.Store
	resolver *catalog.Resolver
	norm     *normalize.Normalizer
	filter   analysis.ModeFilter
	analyzer *analysis.Analyzer
	loc      *time.Location

	repo  RecordRepository
	cache ResultCache
	log   *slog.Logger
	now   func() time.Time
	// epoch is unique per Engine; snapshot versions restart in every process.
	epoch string
}

func New(cfg Config, opts ...Option) *Engine {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	resolver := catalog.NewResolver(cfg.Mapping)
	nopts := []normalize.Option{normalize.WithLocation(loc)}
	for src, cols := range cfg.Columns {
		nopts = append(nopts, normalize.WithColumns(src, cols))
	}
	e := &Engine{
		store:    store.New(),
		resolver: resolver,
		norm:     normalize.New(resolver, nopts...),
		filter:   analysis.ModeFilter{Periods: cfg.Periods, InventoryCategory: cfg.InventoryCategory},
		analyzer: analysis.NewAnalyzer(loc),
		loc:      loc,
		cache:    cache.Noop{},
		log:      slog.Default(),
		now:      time.Now,
		epoch:    uuid.NewString(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Location() *time.Location { return e.loc }

// namespace identifies snapshot version v of this engine in the result cache.
func (e *Engine) namespace(v uint64) string { return fmt.Sprintf("%s:v%d", e.epoch, v) }

// Ingest normalizes rows from one source and stages them. Bad rows are
// counted and described in the report; they never fail the batch. Staged
// records become visible to analyses on the next Refresh.
func (e *Engine) Ingest(ctx context.Context, rows []normalize.Row, src models.Source) (models.IngestReport, error) {
	report := models.IngestReport{
		BatchID:  uuid.NewString(),
		Source:   src,
		Received: len(rows),
		Reasons:  map[string]int{},
	}
	if !src.Valid() {
		return report, fmt.Errorf("%w: source %q", analysis.ErrInvalidParameter, src)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	recs, rejects := e.norm.NormalizeBatch(rows, src)
	outcomes := e.store.UpsertAll(recs)

	report.Accepted = len(recs)
	report.Inserted = outcomes[store.Inserted]
	report.Replaced = outcomes[store.Replaced]
	report.Unchanged = outcomes[store.Unchanged]
	report.Rejected = len(rejects)
	for _, rj := range rejects {
		report.Reasons[rj.Reason()]++
		if len(report.Rejections) < maxRejections {
			report.Rejections = append(report.Rejections, models.RejectedRow{Index: rj.Index, Reason: rj.Reason(), Detail: rj.Detail})
		}
	}
	report.UnmappedCodes = e.resolver.Unmapped()

	metrics.ObserveIngest(string(src), report.Accepted, report.Rejected)
	e.log.Info("ingest",
		slog.String("batch", report.BatchID),
		slog.String("source", string(src)),
		slog.Int("received", report.Received),
		slog.Int("inserted", report.Inserted),
		slog.Int("replaced", report.Replaced),
		slog.Int("rejected", report.Rejected),
	)
	return report, nil
}

// Refresh publishes everything staged so far as a new snapshot, then
// persists the changed records and drops this engine's cached results for
// both the previous and the new version. The swap happens even if persisting fails; the unsaved records
// are retried on the next refresh.
func (e *Engine) Refresh(ctx context.Context) (models.SnapshotInfo, error) {
	prev := e.store.Current().Version()
	snap, dirty := e.store.Refresh(e.now())
	info := e.info(snap)

	var err error
	if e.repo != nil && len(dirty) > 0 {
		if err = e.repo.SaveRecords(ctx, dirty); err != nil {
			e.store.MarkDirty(dirty)
			err = fmt.Errorf("persist %d records: %w", len(dirty), err)
			e.log.Error("refresh persist failed", slog.Uint64("version", snap.Version()), slog.Any("err", err))
		} else {
			info.Persisted = len(dirty)
		}
	}
	for _, v := range []uint64{prev, snap.Version()} {
		if cerr := e.cache.Invalidate(ctx, e.namespace(v)); cerr != nil {
			e.log.Warn("cache invalidate failed", slog.Uint64("version", v), slog.Any("err", cerr))
		}
	}
	metrics.ObserveRefresh(snap.Len(), err)
	e.log.Info("refresh",
		slog.Uint64("version", snap.Version()),
		slog.Int("records", info.Records),
		slog.Int("open", info.OpenRecords),
		slog.Int("persisted", info.Persisted),
	)
	return info, err
}

// Restore loads the persisted record set and publishes it. Any record that
// fails validation makes the whole set unusable: ErrCorruptSnapshot.
func (e *Engine) Restore(ctx context.Context) (models.SnapshotInfo, error) {
	if e.repo == nil {
		return e.info(e.store.Current()), nil
	}
	recs, err := e.repo.LoadRecords(ctx)
	if err != nil {
		return models.SnapshotInfo{}, fmt.Errorf("load records: %w", err)
	}
	for i, r := range recs {
		if err := validate(r); err != nil {
			return models.SnapshotInfo{}, fmt.Errorf("%w: record %d (%s): %v", ErrCorruptSnapshot, i, r.Fingerprint, err)
		}
	}
	e.store.Load(recs)
	snap, _ := e.store.Refresh(e.now())
	metrics.ObserveRefresh(snap.Len(), nil)
	e.log.Info("restored snapshot", slog.Int("records", snap.Len()), slog.Uint64("version", snap.Version()))
	return e.info(snap), nil
}

func validate(r models.BorrowRecord) error {
	switch {
	case r.ItemCode == "" || r.ItemCode != normalize.NormalizeCode(r.ItemCode):
		return fmt.Errorf("bad item code %q", r.ItemCode)
	case r.CheckoutAt.IsZero():
		return errors.New("missing checkout")
	case r.Fingerprint != normalize.Fingerprint(r.ItemCode, r.CheckoutAt):
		return errors.New("fingerprint mismatch")
	case r.CheckinAt != nil && r.CheckinAt.Before(r.CheckoutAt):
		return errors.New("checkin before checkout")
	case !r.Source.Valid():
		return fmt.Errorf("bad source %q", r.Source)
	}
	return nil
}

// Snapshot describes the published snapshot.
func (e *Engine) Snapshot() models.SnapshotInfo { return e.info(e.store.Current()) }

func (e *Engine) info(snap *store.Snapshot) models.SnapshotInfo {
	return models.SnapshotInfo{
		Version:     snap.Version(),
		Records:     snap.Len(),
		Items:       len(snap.Items()),
		OpenRecords: snap.OpenRecords(),
		RefreshedAt: snap.TakenAt(),
	}
}

// UnmappedCodes lists item codes ingested without a category mapping.
func (e *Engine) UnmappedCodes() []string { return e.resolver.Unmapped() }

func (e *Engine) scope(mode analysis.Mode) *analysis.Scope {
	return e.filter.Apply(e.store.Current(), mode)
}

func (e *Engine) SearchItems(mode analysis.Mode, q string, limit int) []models.ItemMatch {
	return analysis.SearchItems(e.scope(mode), q, limit)
}

func (e *Engine) Stats(mode analysis.Mode) models.Stats {
	return analysis.Summarize(e.scope(mode))
}

func (e *Engine) Anomalies(mode analysis.Mode) []models.Anomaly {
	an := e.scope(mode).Anomalies()
	if len(an) > 0 {
		e.log.Debug("interval anomalies", slog.Int("count", len(an)), slog.String("mode", string(mode)))
	}
	return an
}

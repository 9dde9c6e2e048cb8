package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

var (
	ingestRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "borrow",
			Name:      "ingest_rows_total",
			Help:      "Rows received by ingest, partitioned by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "borrow",
			Name:      "analyses_total",
			Help:      "Analyses served, partitioned by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	analysisSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "borrow",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"kind"},
	)

	snapshotRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "borrow",
			Name:      "snapshot_records",
			Help:      "Records in the published snapshot.",
		},
	)

	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "borrow",
			Name:      "refresh_total",
			Help:      "Snapshot refreshes, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "borrow",
			Name:      "result_cache_total",
			Help:      "Result cache lookups, partitioned by hit or miss.",
		},
		[]string{"result"},
	)
)

// Register attaches the collectors to reg. Registering twice is harmless.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ingestRowsTotal,
		analysesTotal,
		analysisSeconds,
		snapshotRecords,
		refreshTotal,
		cacheTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveIngest(source string, accepted, rejected int) {
	ingestRowsTotal.WithLabelValues(source, "accepted").Add(float64(accepted))
	ingestRowsTotal.WithLabelValues(source, "rejected").Add(float64(rejected))
}

func ObserveAnalysis(kind string, ok bool, d time.Duration) {
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFailed
	}
	analysesTotal.WithLabelValues(kind, outcome).Inc()
	if d < 0 {
		d = 0
	}
	analysisSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

func ObserveRefresh(records int, err error) {
	if err != nil {
		refreshTotal.WithLabelValues(OutcomeFailed).Inc()
		return
	}
	refreshTotal.WithLabelValues(OutcomeOK).Inc()
	snapshotRecords.Set(float64(records))
}

func ObserveCache(hit bool) {
	if hit {
		cacheTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheTotal.WithLabelValues("miss").Inc()
}

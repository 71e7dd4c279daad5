// Package metrics records per-scan Prometheus metrics.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"arbScope/internal/model"
)

const namespace = "arbscope"

// Recorder holds the scan metrics on a private registry. A nil Recorder
// discards everything.
type Recorder struct {
	registry *prometheus.Registry

	PoolsFetched  *prometheus.CounterVec
	PoolsFailed   *prometheus.CounterVec
	FetchLatency  *prometheus.HistogramVec
	Opportunities *prometheus.GaugeVec
	BestMultiple  prometheus.Gauge
	ScanDuration  prometheus.Gauge
	LastScan      prometheus.Gauge
}

// New creates a Recorder with all metrics registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		PoolsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "pools_fetched_total",
			Help:      "Pools whose state was fetched and normalized",
		}, []string{"chain_id", "venue"}),
		PoolsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "pools_failed_total",
			Help:      "Pools skipped after fetch or normalization errors",
		}, []string{"chain_id", "venue"}),
		FetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "pool_fetch_seconds",
			Help:      "Time to fetch one pool including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain_id"}),
		Opportunities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "opportunities",
			Help:      "Opportunities found in the last scan",
		}, []string{"kind"}),
		BestMultiple: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "best_effective_multiplier",
			Help:      "Highest effective multiplier in the last scan, 0 when none",
		}),
		ScanDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of the last scan",
		}),
		LastScan: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_timestamp_seconds",
			Help:      "Unix time the last scan finished",
		}),
	}
	r.registry.MustRegister(
		r.PoolsFetched,
		r.PoolsFailed,
		r.FetchLatency,
		r.Opportunities,
		r.BestMultiple,
		r.ScanDuration,
		r.LastScan,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) PoolFetched(chainID uint64, venue string, took time.Duration) {
	if r == nil {
		return
	}
	id := strconv.FormatUint(chainID, 10)
	r.PoolsFetched.WithLabelValues(id, venue).Inc()
	r.FetchLatency.WithLabelValues(id).Observe(took.Seconds())
}

func (r *Recorder) PoolFailed(chainID uint64, venue string, took time.Duration) {
	if r == nil {
		return
	}
	id := strconv.FormatUint(chainID, 10)
	r.PoolsFailed.WithLabelValues(id, venue).Inc()
	r.FetchLatency.WithLabelValues(id).Observe(took.Seconds())
}

// ObserveOpportunities sets the per-kind gauges from a ranked list.
func (r *Recorder) ObserveOpportunities(opps []model.Opportunity) {
	if r == nil {
		return
	}
	counts := map[string]int{model.KindTwoToken: 0, model.KindThreeToken: 0}
	best := 0.0
	for _, opp := range opps {
		counts[opp.Kind]++
		if opp.EffectiveMultiplier > best {
			best = opp.EffectiveMultiplier
		}
	}
	for kind, n := range counts {
		r.Opportunities.WithLabelValues(kind).Set(float64(n))
	}
	r.BestMultiple.Set(best)
}

// ObserveRun records timing of a finished scan.
func (r *Recorder) ObserveRun(run model.ScanRun) {
	if r == nil {
		return
	}
	r.ScanDuration.Set(run.FinishedAt.Sub(run.StartedAt).Seconds())
	r.LastScan.Set(float64(run.FinishedAt.Unix()))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

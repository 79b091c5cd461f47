package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "mdbook_iced"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	stageDuration   *prom.HistogramVec
	runDuration     prom.Histogram
	runOutcome      *prom.CounterVec
	cacheResults    *prom.CounterVec
	compileDuration *prom.HistogramVec
	embeds          prom.Counter
	pruned          *prom.CounterVec
	released        prom.Counter
}

// NewPrometheusRecorder constructs the metrics and registers them with reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual run stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total preprocessor run duration",
			Buckets:   prom.ExponentialBuckets(0.1, 2, 14),
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Runs by final status",
		}, []string{"outcome"}),
		cacheResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_results_total",
			Help:      "Compilation cache lookups by result",
		}, []string{"result"}),
		compileDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Duration of toolchain compilations on cache miss",
			Buckets:   prom.ExponentialBuckets(1, 2, 10),
		}, []string{"result"}),
		embeds: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "embeds_total",
			Help:      "Interactive embeds inserted into pages",
		}),
		pruned: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_entries_total",
			Help:      "Unreferenced artifact directories removed",
		}, []string{"location"}),
		released: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "released_artifacts_total",
			Help:      "Artifacts copied into the release directory",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.runOutcome, pr.cacheResults,
		pr.compileDuration, pr.embeds, pr.pruned, pr.released)
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcome) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCacheResult(result CacheResult) {
	if p == nil {
		return
	}
	p.cacheResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.compileDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddEmbeds(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.embeds.Add(float64(n))
}

func (p *PrometheusRecorder) AddPruned(location Location, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.pruned.WithLabelValues(string(location)).Add(float64(n))
}

func (p *PrometheusRecorder) AddReleased(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.released.Add(float64(n))
}

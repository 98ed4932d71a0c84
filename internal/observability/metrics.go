package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

const metricsNamespace = "fixture_pipeline"

// Metrics owns a private Prometheus registry with the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	reconcileMatches *prometheus.CounterVec
	ledgerWrites     *prometheus.CounterVec
	matchesTotal     *prometheus.CounterVec
	staleResets      prometheus.Counter
	budgetExhausted  prometheus.Counter
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		reconcileMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconcile_matches_total",
			Help:      "Matches seen by reconciliation, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		ledgerWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_writes_total",
			Help:      "Ledger writes by set and result.",
		}, []string{"set", "result"}),
		matchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "matches_processed_total",
			Help:      "Queued matches drained, by result.",
		}, []string{"result"}),
		staleResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stale_processing_resets_total",
			Help:      "Processing rows reset to failed after exceeding the stale timeout.",
		}),
		budgetExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "drain_budget_exhausted_total",
			Help:      "Drains stopped by the match or duration budget.",
		}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "provider_requests_total",
			Help:      "Provider HTTP requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsTotal,
		m.runDuration,
		m.reconcileMatches,
		m.ledgerWrites,
		m.matchesTotal,
		m.staleResets,
		m.budgetExhausted,
		m.providerRequests,
		m.providerLatency,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRun(status string, elapsed time.Duration) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveReconcile(result usecase.ReconcileResult) {
	mode := string(result.Mode)
	m.reconcileMatches.WithLabelValues(mode, "finished_fetched").Add(float64(result.FinishedFetched))
	m.reconcileMatches.WithLabelValues(mode, "upcoming_fetched").Add(float64(result.UpcomingFetched))
	m.reconcileMatches.WithLabelValues(mode, "newly_finished").Add(float64(result.NewlyFinished))
	m.reconcileMatches.WithLabelValues(mode, "still_live").Add(float64(result.StillLive))
	m.reconcileMatches.WithLabelValues(mode, "rescheduled").Add(float64(result.Rescheduled))
	m.reconcileMatches.WithLabelValues(mode, "skipped").Add(float64(result.Skipped))
	m.reconcileMatches.WithLabelValues(mode, "pruned").Add(float64(result.Pruned))

	m.observeBatch("upcoming", result.Upcoming)
	m.observeBatch("finished", result.Finished)
}

func (m *Metrics) observeBatch(set string, batch usecase.BatchResult) {
	m.ledgerWrites.WithLabelValues(set, "inserted").Add(float64(batch.Inserted))
	m.ledgerWrites.WithLabelValues(set, "updated").Add(float64(batch.Updated))
	m.ledgerWrites.WithLabelValues(set, "queued").Add(float64(batch.Queued))
	m.ledgerWrites.WithLabelValues(set, "failed").Add(float64(batch.Failed))
}

func (m *Metrics) ObserveDrain(result usecase.DrainResult) {
	m.matchesTotal.WithLabelValues("processed").Add(float64(result.Processed))
	m.matchesTotal.WithLabelValues("failed").Add(float64(result.Failed))
	m.staleResets.Add(float64(result.StaleReset))
	if result.BudgetExhausted {
		m.budgetExhausted.Inc()
	}
}

func (m *Metrics) ObserveProviderRequest(endpoint, outcome string, elapsed time.Duration) {
	m.providerRequests.WithLabelValues(endpoint, outcome).Inc()
	m.providerLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

func TestMetrics_ObserveRunAndDrain(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveRun("success", 3*time.Second)
	m.ObserveRun("failed", time.Second)
	m.ObserveRun("success", 2*time.Second)
	m.ObserveDrain(usecase.DrainResult{Processed: 4, Failed: 1, StaleReset: 2, BudgetExhausted: true})

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 successful runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.matchesTotal.WithLabelValues("processed")); got != 4 {
		t.Fatalf("expected 4 processed matches, got %v", got)
	}
	if got := testutil.ToFloat64(m.matchesTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed match, got %v", got)
	}
	if got := testutil.ToFloat64(m.staleResets); got != 2 {
		t.Fatalf("expected 2 stale resets, got %v", got)
	}
	if got := testutil.ToFloat64(m.budgetExhausted); got != 1 {
		t.Fatalf("expected budget exhausted once, got %v", got)
	}
}

func TestMetrics_ObserveReconcile(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveReconcile(usecase.ReconcileResult{
		Mode:            usecase.ReconcileModeIncremental,
		UpcomingFetched: 9,
		NewlyFinished:   1,
		Pruned:          1,
		Upcoming:        usecase.BatchResult{Inserted: 1, Updated: 8},
		Finished:        usecase.BatchResult{Inserted: 1, Queued: 1},
	})

	if got := testutil.ToFloat64(m.reconcileMatches.WithLabelValues("incremental", "newly_finished")); got != 1 {
		t.Fatalf("expected 1 newly finished, got %v", got)
	}
	if got := testutil.ToFloat64(m.ledgerWrites.WithLabelValues("upcoming", "updated")); got != 8 {
		t.Fatalf("expected 8 upcoming updates, got %v", got)
	}
	if got := testutil.ToFloat64(m.ledgerWrites.WithLabelValues("finished", "queued")); got != 1 {
		t.Fatalf("expected 1 queued match, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveProviderRequest("fixtures", "200", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `fixture_pipeline_provider_requests_total{endpoint="fixtures",outcome="200"} 1`) {
		t.Fatalf("expected provider request counter in exposition:\n%s", body)
	}
}

var _ usecase.PipelineMetrics = (*Metrics)(nil)

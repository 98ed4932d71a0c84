package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/domain/synclog"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

type stubReader struct {
	board  usecase.FixtureBoard
	status usecase.PipelineStatus
	err    error
}

func (s *stubReader) Board(context.Context) (usecase.FixtureBoard, error) {
	return s.board, s.err
}

func (s *stubReader) Status(context.Context) (usecase.PipelineStatus, error) {
	return s.status, s.err
}

type stubRunner struct {
	calls []usecase.RunOptions
	err   error
}

func (s *stubRunner) RunOnce(_ context.Context, opts usecase.RunOptions) (usecase.RunResult, error) {
	s.calls = append(s.calls, opts)
	if s.err != nil {
		return usecase.RunResult{RunID: "run-1", Status: synclog.StatusFailed}, s.err
	}
	return usecase.RunResult{RunID: "run-1", Status: synclog.StatusSuccess, Inserted: 3}, nil
}

const testJobToken = "job-secret"

func newTestRouter(reader FixtureReader, runner PipelineRunner) http.Handler {
	handler := NewHandler(reader, runner, logging.NewNop())
	return NewRouter(handler, logging.NewNop(), RouterConfig{
		CORSAllowedOrigins: []string{"*"},
		InternalJobToken:   testJobToken,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("fixture_pipeline_runs_total 1\n"))
		}),
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestListFixtures(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC)
	reader := &stubReader{board: usecase.FixtureBoard{
		Finished: []fixture.FinishedView{{ID: 4011, Round: 8, HomeTeam: "Persib", AwayTeam: "Persija", HomeScore: 2, AwayScore: 1, MatchDate: kickoff.AddDate(0, 0, -7)}},
		Upcoming: []fixture.UpcomingView{{ID: 4020, Round: 9, HomeTeam: "Arema", AwayTeam: "Bali United", KickoffAt: kickoff, Status: "Scheduled"}},
	}}
	router := newTestRouter(reader, &stubRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/fixtures", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}
	finished, _ := data["finished_matches"].([]any)
	upcoming, _ := data["upcoming_fixtures"].([]any)
	if len(finished) != 1 || len(upcoming) != 1 {
		t.Fatalf("unexpected board sizes finished=%d upcoming=%d", len(finished), len(upcoming))
	}
	first := finished[0].(map[string]any)
	if first["home"] != "Persib" || first["home_score"] != float64(2) || first["id"] != float64(4011) {
		t.Fatalf("unexpected finished match %v", first)
	}
	next := upcoming[0].(map[string]any)
	if next["kickoff"] != "2026-10-25T12:00:00Z" || next["status"] != "Scheduled" {
		t.Fatalf("unexpected upcoming fixture %v", next)
	}
}

func TestListFixtures_EmptyBoardRendersArrays(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubReader{}, &stubRunner{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/fixtures", nil))

	if !strings.Contains(rec.Body.String(), `"finished_matches":[]`) || !strings.Contains(rec.Body.String(), `"upcoming_fixtures":[]`) {
		t.Fatalf("expected empty arrays, got %s", rec.Body.String())
	}
}

func TestListFixtures_ReaderError(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubReader{err: errors.New("db down")}, &stubRunner{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/fixtures", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGetPipelineStatus(t *testing.T) {
	t.Parallel()

	completed := time.Date(2026, 10, 18, 3, 1, 0, 0, time.UTC)
	reader := &stubReader{status: usecase.PipelineStatus{
		Counts: fixture.Counts{Finished: 8, Upcoming: 9, Queued: 1, Processed: 7},
		LastRun: &synclog.Entry{
			RunID:       "pipeline-1",
			Source:      usecase.SourceName,
			Status:      synclog.StatusSuccess,
			StartedAt:   completed.Add(-time.Minute),
			CompletedAt: &completed,
		},
	}}
	router := newTestRouter(reader, &stubRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/pipeline/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	counts := data["counts"].(map[string]any)
	if counts["queued"] != float64(1) || counts["processed"] != float64(7) {
		t.Fatalf("unexpected counts %v", counts)
	}
	lastRun := data["last_run"].(map[string]any)
	if lastRun["run_id"] != "pipeline-1" || lastRun["source"] != "365scores" {
		t.Fatalf("unexpected last run %v", lastRun)
	}
}

func TestRunPipelineJob(t *testing.T) {
	t.Parallel()

	t.Run("rejects missing token", func(t *testing.T) {
		runner := &stubRunner{}
		router := newTestRouter(&stubReader{}, runner)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/pipeline-run", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if len(runner.calls) != 0 {
			t.Fatalf("runner must not be called without a token")
		}
	})

	t.Run("empty body runs with default budget", func(t *testing.T) {
		runner := &stubRunner{}
		router := newTestRouter(&stubReader{}, runner)
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/pipeline-run", nil)
		req.Header.Set(internalJobTokenHeader, testJobToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(runner.calls) != 1 || runner.calls[0].MaxMatches != 0 {
			t.Fatalf("unexpected runner calls %+v", runner.calls)
		}
		data := decodeEnvelope(t, rec)["data"].(map[string]any)
		if data["run_id"] != "run-1" || data["inserted"] != float64(3) {
			t.Fatalf("unexpected run result %v", data)
		}
	})

	t.Run("passes max matches", func(t *testing.T) {
		runner := &stubRunner{}
		router := newTestRouter(&stubReader{}, runner)
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/pipeline-run", strings.NewReader(`{"max_matches": 25}`))
		req.Header.Set(internalJobTokenHeader, testJobToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(runner.calls) != 1 || runner.calls[0].MaxMatches != 25 {
			t.Fatalf("unexpected runner calls %+v", runner.calls)
		}
	})

	t.Run("validates max matches range", func(t *testing.T) {
		runner := &stubRunner{}
		router := newTestRouter(&stubReader{}, runner)
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/pipeline-run", strings.NewReader(`{"max_matches": 501}`))
		req.Header.Set(internalJobTokenHeader, testJobToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if len(runner.calls) != 0 {
			t.Fatalf("runner must not be called for invalid input")
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		router := newTestRouter(&stubReader{}, &stubRunner{})
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/pipeline-run", strings.NewReader(`{"league_id":"liga-1"}`))
		req.Header.Set(internalJobTokenHeader, testJobToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("overlapping run is a conflict", func(t *testing.T) {
		router := newTestRouter(&stubReader{}, &stubRunner{err: usecase.ErrRunInProgress})
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/pipeline-run", nil)
		req.Header.Set(internalJobTokenHeader, testJobToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestRequireInternalJobToken_NotConfigured(t *testing.T) {
	t.Parallel()

	handler := RequireInternalJobToken(" ", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/pipeline-run", nil)
	req.Header.Set(internalJobTokenHeader, "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSystemRoutes(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubReader{}, &stubRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected healthz response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "fixture_pipeline_runs_total") {
		t.Fatalf("unexpected metrics response %d %s", rec.Code, rec.Body.String())
	}
}

func TestRecoverPanic(t *testing.T) {
	t.Parallel()

	handler := recoverPanic(logging.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/fixtures", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestResolveClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := resolveClientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected forwarded ip, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/fixtures", nil)
	req.RemoteAddr = "198.51.100.4:51234"
	if got := resolveClientIP(req); got != "198.51.100.4" {
		t.Fatalf("expected remote addr ip, got %q", got)
	}
}

package observability

import (
	"errors"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

func TestQuietRequest(t *testing.T) {
	if !quietRequest("http_request", []any{"http_method", "GET", "http_path", "/healthz"}) {
		t.Fatalf("expected health check log to stay local")
	}
	if !quietRequest("http_request", []any{"http_path", "/metrics", "http_status", 200}) {
		t.Fatalf("expected metrics scrape log to stay local")
	}
	if quietRequest("http_request", []any{"http_path", "/v1/pipeline/runs"}) {
		t.Fatalf("did not expect trigger request to stay local")
	}
	if quietRequest("pipeline run completed", []any{"http_path", "/healthz"}) {
		t.Fatalf("did not expect non-request event to stay local")
	}
}

func TestLogAttributes(t *testing.T) {
	attrs := logAttributes([]any{"run_id", "pipeline-20261018", "fixture_id", int64(4011), 7, "orphan", "dangling"})
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "run_id" || attrs[0].Value.AsString() != "pipeline-20261018" {
		t.Fatalf("unexpected run_id attribute: %+v", attrs[0])
	}
	if attrs[1].Key != "fixture_id" || attrs[1].Value.AsInt64() != 4011 {
		t.Fatalf("unexpected fixture_id attribute: %+v", attrs[1])
	}
	if attrs[2].Key != "arg_2" || attrs[2].Value.AsString() != "orphan" {
		t.Fatalf("unexpected positional attribute: %+v", attrs[2])
	}
	if attrs[3].Key != "dangling" || attrs[3].Value.Kind() != otellog.KindEmpty {
		t.Fatalf("unexpected trailing attribute: %+v", attrs[3])
	}
}

func TestLogValue(t *testing.T) {
	if got := logValue(errors.New("provider returned 503")); got.AsString() != "provider returned 503" {
		t.Fatalf("unexpected error value: %q", got.AsString())
	}
	if got := logValue(1500 * time.Millisecond); got.AsString() != "1.5s" {
		t.Fatalf("unexpected duration value: %q", got.AsString())
	}
	ids := logValue([]int64{10, 11})
	if ids.Kind() != otellog.KindSlice || len(ids.AsSlice()) != 2 || ids.AsSlice()[1].AsInt64() != 11 {
		t.Fatalf("unexpected id list value: %+v", ids)
	}
	if got := logValue(nil); got.Kind() != otellog.KindEmpty {
		t.Fatalf("expected empty value for nil, got %s", got.Kind())
	}
}

func TestLogSeverity(t *testing.T) {
	cases := map[zapcore.Level]otellog.Severity{
		zapcore.DebugLevel: otellog.SeverityDebug,
		zapcore.InfoLevel:  otellog.SeverityInfo,
		zapcore.WarnLevel:  otellog.SeverityWarn,
		zapcore.ErrorLevel: otellog.SeverityError,
		zapcore.FatalLevel: otellog.SeverityFatal,
	}
	for level, want := range cases {
		if got := logSeverity(level); got != want {
			t.Fatalf("level %s: expected %v, got %v", level, want, got)
		}
	}
}

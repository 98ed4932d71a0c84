package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_KeyValueFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).With("run_id", "pipeline-1")

	logger.InfoContext(context.Background(), "match processed", "match_id", int64(4011), "error", errors.New("boom"), "dangling")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["run_id"] != "pipeline-1" {
		t.Fatalf("expected run_id field, got %v", fields["run_id"])
	}
	if fields["match_id"] != int64(4011) {
		t.Fatalf("expected match_id=4011, got %v", fields["match_id"])
	}
	if fields["error"] != "boom" {
		t.Fatalf("expected error field, got %v", fields["error"])
	}
	if _, ok := fields["dangling"]; !ok {
		t.Fatalf("expected dangling key to be kept with nil value")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	logger := FromZap(zap.New(core))

	logger.Debug("ignored")
	logger.Info("ignored")
	logger.Warn("kept")

	if logs.Len() != 1 {
		t.Fatalf("expected one entry at warn level, got %d", logs.Len())
	}
}

func TestLogger_NilSafe(t *testing.T) {
	t.Parallel()

	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected non-nil logger from nil receiver")
	}
	if err := logger.Sync(); err != nil {
		t.Fatalf("expected nil sync error, got %v", err)
	}
}

func TestSetMirror_ReceivesEnabledEntries(t *testing.T) {
	var got []string
	SetMirror(func(_ context.Context, level Level, msg string, args ...any) {
		got = append(got, level.String()+":"+msg)
	})
	t.Cleanup(func() { SetMirror(nil) })

	core, _ := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core))
	logger.Debug("filtered")
	logger.Info("reconcile done")
	logger.ErrorContext(context.Background(), "drain failed")

	if len(got) != 2 || got[0] != "info:reconcile done" || got[1] != "error:drain failed" {
		t.Fatalf("unexpected mirrored entries %v", got)
	}

	SetMirror(nil)
	logger.Info("after removal")
	if len(got) != 2 {
		t.Fatalf("expected no mirroring after removal, got %v", got)
	}
}

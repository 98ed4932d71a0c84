package fixture

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFallbackKey_ReplacesWhitespace(t *testing.T) {
	t.Parallel()

	got := FallbackKey(12, "Persib Bandung", "Bali\tUnited")
	if got != "12_Persib_Bandung_Bali_United" {
		t.Fatalf("unexpected fallback key: %s", got)
	}
}

func TestFallbackID_StableAndPositive(t *testing.T) {
	t.Parallel()

	first := FallbackID(3, "Arema", "PSIS")
	second := FallbackID(3, "Arema", "PSIS")
	if first != second {
		t.Fatalf("fallback id is not stable: %d vs %d", first, second)
	}
	if first <= 0 {
		t.Fatalf("fallback id must be positive, got %d", first)
	}
	if other := FallbackID(3, "PSIS", "Arema"); other == first {
		t.Fatalf("expected swapped teams to produce a different id")
	}
}

func TestTruncateError(t *testing.T) {
	t.Parallel()

	if got := TruncateError(nil); got != "" {
		t.Fatalf("expected empty string for nil error, got %q", got)
	}

	long := errors.New(strings.Repeat("x", 800))
	if got := TruncateError(long); len(got) != MaxErrorLength {
		t.Fatalf("expected %d chars, got %d", MaxErrorLength, len(got))
	}
	if got := TruncateError(errors.New("short")); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestMatch_HasCompetition(t *testing.T) {
	t.Parallel()

	m := Match{CompetitionIDs: []int64{7, 649}}
	if !m.HasCompetition(649) {
		t.Fatalf("expected competition 649 to match")
	}
	if m.HasCompetition(1) {
		t.Fatalf("expected competition 1 not to match")
	}
}

func TestNewProcessingStatus_AllPending(t *testing.T) {
	t.Parallel()

	status := NewProcessingStatus(Match{ID: 10, Round: 2, HomeTeam: "A", AwayTeam: "B"}, time.Time{})
	if status.OverallStatus != OverallPending || status.FetchStatus != StagePending || status.SaveTeamsStatus != StagePending {
		t.Fatalf("expected pending stages, got %+v", status)
	}
	if status.FetchAttempts != 0 {
		t.Fatalf("expected zero attempts, got %d", status.FetchAttempts)
	}
}

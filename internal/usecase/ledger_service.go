package usecase

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/fixture-pipeline/internal/domain/fixture"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
)

// BatchResult counts per-record outcomes of a ledger batch.
type BatchResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Queued   int `json:"queued"`
	Failed   int `json:"failed"`
}

func (r BatchResult) Add(other BatchResult) BatchResult {
	return BatchResult{
		Inserted: r.Inserted + other.Inserted,
		Updated:  r.Updated + other.Updated,
		Queued:   r.Queued + other.Queued,
		Failed:   r.Failed + other.Failed,
	}
}

// LedgerService applies batches of matches to the ledger. A failing record is
// logged and counted, it never aborts the rest of the batch.
type LedgerService struct {
	ledger fixture.Ledger
	logger *logging.Logger
}

func NewLedgerService(ledger fixture.Ledger, logger *logging.Logger) *LedgerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LedgerService{ledger: ledger, logger: logger}
}

func (s *LedgerService) SaveUpcoming(ctx context.Context, matches []fixture.Match) BatchResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.SaveUpcoming", attribute.Int("matches", len(matches)))
	defer span.End()

	var result BatchResult
	for _, m := range matches {
		if ctx.Err() != nil {
			result.Failed++
			continue
		}
		outcome, err := s.ledger.UpsertUpcoming(ctx, m)
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "save upcoming fixture failed", "fixture_id", m.ID, "error", err)
			continue
		}
		if outcome.Inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	s.logger.InfoContext(ctx, "upcoming fixtures saved",
		"inserted", result.Inserted,
		"updated", result.Updated,
		"failed", result.Failed,
	)
	return result
}

func (s *LedgerService) MarkFinishedBatch(ctx context.Context, matches []fixture.Match) BatchResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.MarkFinishedBatch", attribute.Int("matches", len(matches)))
	defer span.End()

	var result BatchResult
	for _, m := range matches {
		result = result.Add(s.markFinished(ctx, m))
	}

	s.logger.InfoContext(ctx, "finished matches saved",
		"inserted", result.Inserted,
		"updated", result.Updated,
		"queued", result.Queued,
		"failed", result.Failed,
	)
	return result
}

func (s *LedgerService) markFinished(ctx context.Context, m fixture.Match) BatchResult {
	if ctx.Err() != nil {
		return BatchResult{Failed: 1}
	}
	outcome, err := s.ledger.MarkFinished(ctx, m)
	if err != nil {
		s.logger.WarnContext(ctx, "save finished match failed", "fixture_id", m.ID, "error", err)
		return BatchResult{Failed: 1}
	}

	var result BatchResult
	if outcome.Inserted {
		result.Inserted = 1
	} else {
		result.Updated = 1
	}
	if outcome.Queued {
		result.Queued = 1
	}
	return result
}

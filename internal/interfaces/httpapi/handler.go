package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

// FixtureReader serves the read models behind the public endpoints.
type FixtureReader interface {
	Board(ctx context.Context) (usecase.FixtureBoard, error)
	Status(ctx context.Context) (usecase.PipelineStatus, error)
}

// PipelineRunner triggers one pipeline invocation.
type PipelineRunner interface {
	RunOnce(ctx context.Context, opts usecase.RunOptions) (usecase.RunResult, error)
}

type Handler struct {
	reader    FixtureReader
	runner    PipelineRunner
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(reader FixtureReader, runner PipelineRunner, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		reader:    reader,
		runner:    runner,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixtures")
	defer span.End()

	board, err := h.reader.Board(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list fixtures failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, fixtureBoardToDTO(board))
}

func (h *Handler) GetPipelineStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPipelineStatus")
	defer span.End()

	status, err := h.reader.Status(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "get pipeline status failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, pipelineStatusToDTO(status))
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

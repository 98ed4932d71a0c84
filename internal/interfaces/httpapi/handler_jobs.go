package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

const maxJobRequestBytes = 1 << 16

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

type pipelineRunRequest struct {
	MaxMatches int `json:"max_matches" validate:"gte=0,lte=500"`
}

func (h *Handler) RunPipelineJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPipelineJob")
	defer span.End()

	if h.runner == nil {
		writeError(ctx, w, fmt.Errorf("%w: pipeline runner is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodePipelineRunRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.runner.RunOnce(ctx, usecase.RunOptions{MaxMatches: req.MaxMatches})
	if err != nil {
		h.logger.WarnContext(ctx, "run pipeline job failed", "max_matches", req.MaxMatches, "run_id", result.RunID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, runResultToDTO(result))
}

func decodePipelineRunRequest(r *http.Request) (pipelineRunRequest, error) {
	var req pipelineRunRequest
	if r.Body == nil {
		return req, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxJobRequestBytes))
	if err != nil {
		return req, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := strictJSON.Unmarshal(body, &req); err != nil {
		return pipelineRunRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

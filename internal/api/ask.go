package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/duckboard/duckboard/internal/chart"
	"github.com/duckboard/duckboard/internal/nl2sql"
	"github.com/duckboard/duckboard/internal/warehouse"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question string              `json:"question"`
	SQL      string              `json:"sql"`
	Model    string              `json:"model,omitempty"`
	Columns  []string            `json:"columns"`
	Rows     [][]any             `json:"rows"`
	Chart    chart.Configuration `json:"chart"`
	Stats    map[string]any      `json:"stats"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Ask == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	answer, err := deps.Ask.Ask(r.Context(), request.Question)
	if err != nil {
		writeAskError(deps, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Question: answer.Question,
		SQL:      answer.SQL,
		Model:    answer.Model,
		Columns:  answer.Result.Columns,
		Rows:     answer.Result.Rows,
		Chart:    answer.Chart,
		Stats: map[string]any{
			"row_count":   len(answer.Result.Rows),
			"duration_ms": answer.Result.Duration.Milliseconds(),
		},
	})
}

// writeAskError maps pipeline failures onto the envelope. A generation
// failure is the service's fault or the model's, so it reads as a gateway
// problem; a rejected query carries the engine diagnostic verbatim so the
// user can judge what the model got wrong.
func writeAskError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	var generationErr *nl2sql.GenerationError
	if errors.As(err, &generationErr) {
		writeError(r.Context(), w, http.StatusBadGateway, "GENERATION_FAILED", "could not generate a query for this question", true, map[string]any{
			"reason": generationErr.Reason,
		})
		return
	}

	var executionErr *warehouse.ExecutionError
	if errors.As(err, &executionErr) {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", executionErr.Diagnostic, false, map[string]any{
			"sql": executionErr.SQL,
		})
		return
	}

	if deps.Logger != nil {
		deps.Logger.ErrorContext(r.Context(), "ask pipeline failed", "error", err)
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "ASK_FAILED", "failed to answer the question", true, nil)
}

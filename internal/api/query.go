package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/duckboard/duckboard/internal/observability"
	"github.com/duckboard/duckboard/internal/warehouse"
)

type queryRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type queryResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

// handleQuery runs user-written SQL directly. Unlike /v1/ask, a row limit
// is honored here because the caller knows their statement has no LIMIT.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := deps.Executor.Execute(r.Context(), warehouse.Request{
		SQL:      request.SQL,
		RowLimit: request.RowLimit,
	})
	observability.ObserveExecution(result.Duration, err)
	if err != nil {
		var executionErr *warehouse.ExecutionError
		if errors.As(err, &executionErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", executionErr.Diagnostic, false, map[string]any{"sql": executionErr.SQL})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", "query failed", true, nil)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Columns: result.Columns,
		Rows:    result.Rows,
		Stats: map[string]any{
			"row_count":   len(result.Rows),
			"duration_ms": result.Duration.Milliseconds(),
		},
	})
}

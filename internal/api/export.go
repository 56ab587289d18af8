package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/duckboard/duckboard/internal/warehouse"
)

type exportRequest struct {
	SQL   string `json:"sql"`
	Label string `json:"label"`
}

// handleExport re-executes the SQL and uploads the result as parquet. The
// client sends the SQL rather than the rows so the export reflects the
// warehouse, not whatever the browser happened to cache.
func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "no object store is configured for exports", false, nil)
		return
	}
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	var request exportRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid export request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := deps.Executor.Execute(r.Context(), warehouse.Request{SQL: request.SQL})
	if err != nil {
		var executionErr *warehouse.ExecutionError
		if errors.As(err, &executionErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", executionErr.Diagnostic, false, map[string]any{"sql": executionErr.SQL})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", "query failed", true, nil)
		return
	}

	info, err := deps.Exporter.Export(r.Context(), request.Label, result)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "failed to export result", true, map[string]any{"details": err.Error()})
		return
	}
	if deps.Logger != nil {
		deps.Logger.InfoContext(r.Context(), "result exported", "key", info.Key, "size", info.Size)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"key":       info.Key,
		"size":      info.Size,
		"etag":      info.ETag,
		"row_count": len(result.Rows),
	})
}

package api

import "net/http"

// handleSchema returns the rendered schema context exactly as the prompt
// assembler sees it. Useful for debugging why the model picked a table.
func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema dependencies are not configured", false, nil)
		return
	}

	text, err := deps.Schema.SchemaText(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_UNAVAILABLE", "failed to build schema context", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema": text})
}

package api

import (
	"net/http"

	"github.com/duckboard/duckboard/internal/observability"
)

func handleListExamples(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Examples == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXAMPLES_NOT_CONFIGURED", "example dependencies are not configured", false, nil)
		return
	}
	pairs := deps.Examples.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"examples": pairs,
		"count":    len(pairs),
	})
}

func handleReloadExamples(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Examples == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXAMPLES_NOT_CONFIGURED", "example dependencies are not configured", false, nil)
		return
	}
	count, err := deps.Examples.Reload(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXAMPLES_RELOAD_FAILED", "failed to reload examples, previous collection kept", true, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveExampleReload()
	if deps.Logger != nil {
		deps.Logger.InfoContext(r.Context(), "examples reloaded", "count", count)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "count": count})
}

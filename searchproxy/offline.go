package searchproxy

import (
	_ "embed"
	"net/http"
)

//go:embed static/offline.html
var offlinePage []byte

// handleOffline serves the static fallback page clients show when the
// network is unreachable.
func (h *Handler) handleOffline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(offlinePage)
}

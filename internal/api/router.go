// Package api exposes the read-only HTTP surface consumed by the dashboard
// UI.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"cryptotrackerv1/internal/model"
	"cryptotrackerv1/internal/refresh"
)

// NewRouter sets up the HTTP routes.
func NewRouter(orch *refresh.Orchestrator, log *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// GET /api/v1/indicators?symbol=BTC&tf=1h
	// Serves the cached bundle (or a synthetic placeholder) immediately and
	// kicks a background refresh; the Source field tells the caller which
	// kind of data it got.
	mux.HandleFunc("/api/v1/indicators", func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			httpError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		tf, ok := model.ParseTimeframe(r.URL.Query().Get("tf"))
		if !ok {
			httpError(w, http.StatusBadRequest, "unsupported timeframe")
			return
		}

		bundle := orch.Get(symbol, tf)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(bundle); err != nil {
			log.Warn("indicator response encode failed", "err", err)
		}
	})

	return mux
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

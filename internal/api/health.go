package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/achados/internal/store"
)

// HealthHandler reports whether the database is reachable.
type HealthHandler struct {
	DB *sql.DB
}

type healthResponse struct {
	Status string         `json:"status"`
	Items  map[string]int `json:"items"`
}

// Check handles GET /api/healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	counts, err := store.CountItemsByStatus(r.Context(), h.DB)
	if err != nil {
		slog.Error("health check failed", "error", err)
		jsonResponse(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	jsonResponse(w, http.StatusOK, healthResponse{Status: "ok", Items: counts})
}

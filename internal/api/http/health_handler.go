package http

import (
	"context"
	"net/http"
	"time"

	"gearhire-backend/internal/logger"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports 503 when the database cannot be reached.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "connected"}
	status := http.StatusOK
	if h.db == nil {
		resp.Database = "unconfigured"
	} else if err := h.db.Ping(ctx); err != nil {
		logger.WarnContext(ctx, "Health check: database unreachable", "error", err)
		resp.Status, resp.Database = "degraded", "disconnected"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const readyTimeout = 2 * time.Second

type readyzResponse struct {
	Ready   bool   `json:"ready"`
	Backend string `json:"backend,omitempty"`
	Session bool   `json:"session"`
	Error   string `json:"error,omitempty"`
}

// Readyz reports 503 while the backend does not answer a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Backend: d.Backend}
		if d.Session != nil {
			resp.Session = d.Session.Current() != nil
		}

		if d.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := d.Health.Ping(ctx); err != nil {
				d.Logger.Warn("readiness check failed", logger.String("backend", d.Backend), logger.Error(err))
				resp.Ready = false
				resp.Error = err.Error()
				writeJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

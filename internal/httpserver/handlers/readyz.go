package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/updater/internal/httpserver/deps"
	"github.com/MrSnakeDoc/updater/internal/logger"
)

const readyzPingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Store string `json:"store"`
	Error string `json:"error,omitempty"`
}

// Readyz reports whether the backing store answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Store: d.StoreBackend}

		if d.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyzPingTimeout)
			defer cancel()

			if err := d.Store.Ping(ctx); err != nil {
				d.Logger.Warn("readiness check failed", logger.String("store", d.StoreBackend), logger.Error(err))
				resp.Ready = false
				resp.Error = d.StoreBackend + " unreachable"
				writeJSON(w, d.Logger, http.StatusServiceUnavailable, resp)
				return
			}
		}

		writeJSON(w, d.Logger, http.StatusOK, resp)
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"mucajeyadmin/store"
)

type statusResponse struct {
	Status string `json:"status"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Readyz reports whether the user store can be read.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var err error
	if p, ok := h.store.(store.Pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = h.store.LoadAll(ctx)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "readiness check failed", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "ServiceUnavailable")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

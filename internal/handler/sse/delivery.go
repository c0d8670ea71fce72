package sse

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pushgate/pushgate/internal/domain/model"
	"github.com/pushgate/pushgate/internal/service"
)

type Handler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
}

func NewHandler(logger *slog.Logger, deliverer service.Deliverer) *Handler {
	return &Handler{logger: logger, deliverer: deliverer}
}

// Stream opens a server-sent-events session. Identity arrives pre-validated
// from the upstream auth layer via the X-User-Id header; the initial channel
// set comes from the comma-separated "channels" query parameter.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if tenantID == "" || userID == "" {
		http.Error(w, "missing identity", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	tr := newTransport(w, flusher)
	connID, ok := h.deliverer.Subscribe(tr, service.Identity{
		UserID:   userID,
		TenantID: tenantID,
	}, parseChannels(r.URL.Query().Get("channels")), map[string]string{
		"transport":  "sse",
		"remote_ip":  r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
	if !ok {
		http.Error(w, "connection limit reached", http.StatusServiceUnavailable)
		return
	}

	l := h.logger.With(
		slog.String("conn_id", connID),
		slog.String("user_id", userID),
		slog.String("tenant_id", tenantID),
	)
	l.Info("sse stream opened")

	select {
	case <-r.Context().Done():
		// Client went away; the pool still holds the session until told.
		h.deliverer.Unsubscribe(connID, model.CloseClientClosed)
	case <-tr.Done():
		// The pool released the session (shutdown, sweep, write error).
	}

	l.Info("sse stream closed")
}

func parseChannels(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	channels := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			channels = append(channels, p)
		}
	}
	return channels
}

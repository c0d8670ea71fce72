package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pushgate/pushgate/internal/domain/model"
	"github.com/pushgate/pushgate/internal/service"
)

type Handler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	upgrader  websocket.Upgrader
}

func NewHandler(logger *slog.Logger, deliverer service.Deliverer) *Handler {
	return &Handler{
		logger:    logger,
		deliverer: deliverer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // origin policy lives upstream
		},
	}
}

// Stream opens a websocket session carrying the same wire frames as the SSE
// route. Inbound client data is ignored; the read pump exists only to
// detect the peer closing.
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

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "err", err)
		return
	}

	tr := newTransport(conn)
	connID, ok := h.deliverer.Subscribe(tr, service.Identity{
		UserID:   userID,
		TenantID: tenantID,
	}, parseChannels(r.URL.Query().Get("channels")), map[string]string{
		"transport":  "ws",
		"remote_ip":  r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
	if !ok {
		_ = tr.Close()
		return
	}

	l := h.logger.With(
		slog.String("conn_id", connID),
		slog.String("user_id", userID),
		slog.String("tenant_id", tenantID),
	)
	l.Info("ws stream opened")

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.deliverer.Unsubscribe(connID, model.CloseClientClosed)
				return
			}
		}
	}()

	select {
	case <-r.Context().Done():
		h.deliverer.Unsubscribe(connID, model.CloseClientClosed)
	case <-tr.Done():
	}

	l.Info("ws stream closed")
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

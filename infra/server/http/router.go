// Package httpserver hosts the gateway's HTTP surface: the streaming routes
// and the health snapshot.
package httpserver

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	ssehandler "github.com/pushgate/pushgate/internal/handler/sse"
	wshandler "github.com/pushgate/pushgate/internal/handler/ws"
	"github.com/pushgate/pushgate/internal/service"
)

func NewRouter(sseH *ssehandler.Handler, wsH *wshandler.Handler, pub service.Publisher) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/stream", sseH.Stream)
		r.Get("/ws", wsH.Stream)
	})
	r.Get("/healthz", healthz(pub))

	return r
}

func healthz(pub service.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":        "ok",
			"now":           time.Now().Format(time.RFC3339Nano),
			"pool":          pub.Stats(),
			"go_version":    runtime.Version(),
			"num_goroutine": runtime.NumGoroutine(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

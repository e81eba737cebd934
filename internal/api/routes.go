package api

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

// RegisterRoutes registers every endpoint on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("GET /dashboard", h.Dashboard)
	mux.HandleFunc("GET /health", h.Health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	mux.HandleFunc("GET /{$}", h.FrontendIndex)
	mux.HandleFunc("GET /static/{path...}", h.FrontendStatic)
	for _, name := range rootAssets {
		mux.HandleFunc("GET /"+name, h.rootAsset(name))
	}
}

// NewRouter returns the handler tree with CORS and request middleware applied.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = Recover(logger)(handler)
	handler = Logging(logger)(handler)
	handler = RequestID(handler)
	return cors.AllowAll().Handler(handler)
}

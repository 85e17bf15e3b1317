package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter はサンドボックスのルーターを生成する。metricsがnilの場合は/metricsを公開しない。
func NewRouter(h *SandboxHandler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// ルート定義
	r.Route("/v1", func(r chi.Router) {
		r.Post("/cardregistrations", h.CreatePreregistration)
		r.Get("/cardregistrations/{id}", h.GetPreregistration)
		r.Post("/tokenize", h.Tokenize)
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	return otelhttp.NewHandler(r, "sandbox")
}

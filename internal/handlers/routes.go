package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes assembles the HTTP router.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/games", h.GetGames)
		r.Get("/results/{game}", h.GetResults)

		r.Post("/predict/{game}", h.GeneratePredictions)
		r.Get("/predictions/{game}", h.GetPredictions)
		r.Get("/predictions/{game}/accuracy", h.GetAccuracySummary)
		r.Post("/predictions/{game}/{prediction}/calculate-accuracy", h.CalculateAccuracy)

		r.Post("/accuracy/auto-calculate", h.AutoCalculateAccuracy)
		r.Get("/accuracy/diagnostics/{game}", h.GetReconcileDiagnostics)

		r.Get("/stats/{game}", h.GetStats)
		r.Get("/stats/{game}/gaussian", h.GetGaussianStats)
	})

	return r
}

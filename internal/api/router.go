package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Cheertaboi/hotel-discount-service/internal/api/handlers"
	"github.com/Cheertaboi/hotel-discount-service/internal/api/middleware"
	"github.com/Cheertaboi/hotel-discount-service/internal/service"
)

// NewRouter builds the HTTP router for the discount-service
func NewRouter(svc *service.DiscountService, jwtSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	h := handlers.NewDiscountHandler(svc, logger)

	r.Route("/api/discounts", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Get("/", h.ListDiscounts)
		r.Post("/", h.CreateDiscount)
		r.Post("/validate", h.ValidateDiscount)
		r.Post("/use", h.UseDiscount)
		r.Post("/apply", h.ApplyDiscount)
		r.Put("/{id}", h.UpdateDiscount)
		r.Delete("/{id}", h.DeleteDiscount)
		r.Patch("/{id}/toggle", h.ToggleDiscount)
	})

	r.Handle("/metrics", promhttp.Handler())

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

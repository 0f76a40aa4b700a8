package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/delivery/http/handler"
	"github.com/user/mst-crawler/internal/delivery/http/middleware"
)

// New wires the lookup endpoints. requestTimeout bounds a whole pipeline run.
func New(h *handler.Handler, logger *zap.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/health", h.HandleHealthCheck)

	r.Group(func(r chi.Router) {
		if requestTimeout > 0 {
			r.Use(chimw.Timeout(requestTimeout))
		}
		r.Get("/tax-info", h.HandleTaxInfo)
		r.Get("/get-contact-info", h.HandleContactInfo)
		r.Get("/combined-info", h.HandleCombinedInfo)
		r.Get("/companies", h.HandleListCompanies)
		r.Get("/companies/{taxID}", h.HandleGetCompany)
	})

	return r
}

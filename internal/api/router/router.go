package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lawlink/booking-platform/internal/http/handlers"
	httpmiddleware "github.com/lawlink/booking-platform/internal/http/middleware"
	"github.com/lawlink/booking-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *handlers.AvailabilityHandler
	ReservationHandler  *handlers.ReservationHandler
	ConsultationHandler *handlers.ConsultationHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Optional per-IP rate limit on hold placement.
	ReserveRateLimit float64
	ReserveBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/providers/{providerID}", func(provider chi.Router) {
		if cfg.AvailabilityHandler != nil {
			provider.Get("/availability", cfg.AvailabilityHandler.GetAvailability)
			provider.Get("/profile", cfg.AvailabilityHandler.GetProfile)
			provider.Put("/profile", cfg.AvailabilityHandler.UpsertProfile)
			provider.Route("/timeoff", func(r chi.Router) {
				r.Post("/", cfg.AvailabilityHandler.AddTimeOff)
				r.Get("/", cfg.AvailabilityHandler.ListTimeOff)
				r.Delete("/{periodID}", cfg.AvailabilityHandler.RemoveTimeOff)
			})
		}
		if cfg.ReservationHandler != nil {
			reserve := provider.With()
			if cfg.ReserveRateLimit > 0 {
				reserve = provider.With(httpmiddleware.RateLimit(cfg.ReserveRateLimit, cfg.ReserveBurst))
			}
			reserve.Post("/reservations", cfg.ReservationHandler.Reserve)
		}
	})

	if cfg.ReservationHandler != nil {
		r.Route("/reservations", func(res chi.Router) {
			res.Post("/cleanup", cfg.ReservationHandler.Cleanup)
			res.Delete("/{reservationID}", cfg.ReservationHandler.Release)
			if cfg.ConsultationHandler != nil {
				res.Post("/{reservationID}/confirm", cfg.ConsultationHandler.Confirm)
			}
		})
	}
	if cfg.ConsultationHandler != nil {
		r.Post("/consultations/{consultationID}/cancel", cfg.ConsultationHandler.Cancel)
	}

	return r
}

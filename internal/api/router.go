package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/auth"
)

type RouterConfig struct {
	Service  BookingService
	Auth     *auth.Authenticator
	Logger   zerolog.Logger
	Location *time.Location

	// Metrics and MetricsHandler are optional.
	Metrics        HTTPObserver
	MetricsHandler http.Handler

	// BookingLimiter throttles booking per caller; nil disables it.
	BookingLimiter *RateLimiter

	PostgresPing PingFunc
	RedisPing    PingFunc
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	p := presenter{loc: loc}

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware)
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}
	r.Use(AuthMiddleware(cfg.Auth))

	// Health endpoints
	health := NewHealthHandler(cfg.PostgresPing, cfg.RedisPing, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Doctor endpoints
	r.Route("/doctor", func(r chi.Router) {
		r.Use(RequireRole(cfg.Auth, auth.RoleDoctor))
		r.Post("/slots/generate", generateSlotsHandler(cfg.Service))
		r.Get("/schedule", doctorScheduleHandler(cfg.Service, p))
		r.Post("/slots/{id}/toggle", toggleSlotHandler(cfg.Service, p))
	})

	// Patient endpoints
	r.Get("/slots/available", availableSlotsHandler(cfg.Service, p))
	r.With(RequirePatient(cfg.Auth), RateLimitMiddleware(cfg.BookingLimiter)).
		Post("/slots/{id}/book", bookSlotHandler(cfg.Service, p))
	r.With(RequirePatient(cfg.Auth)).
		Get("/patient/appointments", patientAppointmentsHandler(cfg.Service, p))

	return r
}

// Package api serves the scheduling REST interface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/metrics"
	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/scheduling"
)

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LoginRecorder counts rejected logins; satisfied by *metrics.Collector.
type LoginRecorder interface {
	LoginFailed(code string)
}

type RouterDeps struct {
	Scheduling   *scheduling.Service
	Auth         *auth.Authenticator
	Gate         middleware.Resolver
	Health       Pinger
	Log          zerolog.Logger
	LoginLimiter *middleware.RateLimiter
	CORSOrigins  []string

	// Optional. Nil disables /metrics and request metrics.
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

type Server struct {
	sched  *scheduling.Service
	authn  *auth.Authenticator
	health Pinger
	logins LoginRecorder
	fail   middleware.ErrorWriter
}

type nopLogins struct{}

func (nopLogins) LoginFailed(string) {}

func NewRouter(d RouterDeps) http.Handler {
	s := &Server{
		sched:  d.Scheduling,
		authn:  d.Auth,
		health: d.Health,
		logins: nopLogins{},
		fail:   errorWriter(d.Log),
	}
	var obs middleware.HTTPObserver
	if d.Metrics != nil {
		s.logins = d.Metrics
		obs = d.Metrics
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(d.Log, obs))
	r.Use(middleware.Recover(d.Log, s.fail))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.Get("/health", s.Health)
	if d.Metrics != nil && d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		login := r.With()
		if d.LoginLimiter != nil {
			login = r.With(middleware.LimitHTTP(d.LoginLimiter))
		}
		login.Post("/login", s.Login)
		r.Post("/logout", s.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(d.Gate, s.fail))

		r.Route("/appointments", func(r chi.Router) {
			r.With(s.requireRole(model.RoleDoctor)).Post("/", s.CreateAppointment)
			r.Get("/mine", s.ListAppointments)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetAppointment)
				r.With(s.requireRole(model.RoleDoctor)).Put("/", s.UpdateAppointment)
				r.With(s.requireRole(model.RoleDoctor, model.RoleAdmin)).Delete("/", s.DeleteAppointment)
			})
		})
	})

	return r
}

// requireRole rejects the request before its body or path is parsed.
func (s *Server) requireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.RequireRole(principal(r), roles...); err != nil {
				s.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.health.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

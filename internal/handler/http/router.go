package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	LogLevel       slog.Level

	// JWTService protects the API when set. Nil leaves it open on loopback.
	JWTService jwt.Service
}

type Handlers struct {
	Attendance AttendanceHandler
	Geofence   GeofenceHandler
	Session    SessionHandler
	Events     EventsHandler
}

func NewRouter(cfg RouterConfig, logger *slog.Logger, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTService != nil {
			r.Use(jwtauth.Verify(cfg.JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired)
		}

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/status", h.Attendance.Status)
			r.Get("/today", h.Attendance.Today)
			r.Get("/records", h.Attendance.Records)
			r.Get("/stats", h.Attendance.Stats)
			r.Get("/report", h.Attendance.Report)
			r.Post("/punch", h.Attendance.Punch)
			r.Post("/refresh", h.Attendance.Refresh)
		})

		r.Get("/geofence/check", h.Geofence.Check)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.Session.Get)
			r.Put("/", h.Session.Put)
			r.Delete("/", h.Session.Delete)
		})

		r.Get("/events", h.Events.Stream)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status_cd":0,"message":"route not found"}`))
	})

	return r
}

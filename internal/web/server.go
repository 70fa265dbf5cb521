// Package web hosts the HTTP surface: routing, middleware and page templates.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/metrics"
)

// Version is reported by the index endpoint.
const Version = "1.0.0"

// maxBodyBytes bounds JSON and form request bodies.
const maxBodyBytes = 10 << 20

// Config holds server configuration
type Config struct {
	Port            int
	Environment     string
	Production      bool
	FrontendURL     string
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	api        *chi.Mux
	httpServer *http.Server
	config     *Config
	listener   net.Listener
	log        *logger.Logger
	now        func() time.Time
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config, log *logger.Logger) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		api:    chi.NewRouter(),
		config: cfg,
		log:    log,
		now:    time.Now,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(s.recoverer)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(corsOptions(s.config.FrontendURL)))
	s.router.Use(middleware.RequestSize(maxBodyBytes))

	limiter := NewRateLimiter("api", s.config.RateLimitWindow, s.config.RateLimitMax, s.log)
	s.api.Use(limiter.Middleware)
}

func corsOptions(frontendURL string) cors.Options {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"AMP-Access-Control-Allow-Source-Origin", "AMP-Email-Allow-Sender"},
		MaxAge:         300,
	}
	if frontendURL == "" {
		opts.AllowedOrigins = []string{"*"}
		return opts
	}
	opts.AllowedOrigins = []string{frontendURL}
	opts.AllowCredentials = true
	return opts
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "OK",
			"timestamp":   s.now().UTC(),
			"environment": s.config.Environment,
		})
	})

	s.router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Resume Refresh API",
			"version": Version,
			"endpoints": map[string]string{
				"health":    "/health",
				"sendEmail": "/api/email/send",
				"ampSubmit": "/api/amp/submit",
				"ampProxy":  "/api/amp/proxy",
				"webForm":   "/api/form/resume-form",
				"metrics":   "/metrics",
			},
		})
	})

	s.router.Handle("/metrics", metrics.Handler())
	s.router.Mount("/api", s.api)

	notFound := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "Route not found",
			"path":  r.URL.RequestURI(),
		})
	}
	s.router.NotFound(notFound)
	s.api.NotFound(notFound)
}

// recoverer turns a handler panic into a JSON 500. The stack is only
// included outside production.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			stack := string(debug.Stack())
			s.log.Error().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("path", r.URL.Path).
				Interface("panic", rvr).
				Str("stack", stack).
				Msg("handler panicked")

			body := map[string]any{
				"success": false,
				"error":   "Internal Server Error",
			}
			if !s.config.Production {
				body["details"] = fmt.Sprint(rvr)
				body["stack"] = stack
			}
			writeJSON(w, http.StatusInternalServerError, body)
		}()

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		_ = err // Client disconnected
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Str("addr", listener.Addr().String()).Msg("http server listening")
	return s.httpServer.Serve(listener)
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// BaseURL returns the server's base URL
func (s *Server) BaseURL() string {
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}

// NotificationRoutes serves /api/email.
type NotificationRoutes interface {
	Send(w http.ResponseWriter, r *http.Request)
	SendBulk(w http.ResponseWriter, r *http.Request)
	Logs(w http.ResponseWriter, r *http.Request)
	TestConnection(w http.ResponseWriter, r *http.Request)
	Stats(w http.ResponseWriter, r *http.Request)
}

// RegisterNotificationHandler registers the notification API.
func (s *Server) RegisterNotificationHandler(h NotificationRoutes) {
	s.api.Route("/email", func(r chi.Router) {
		r.Post("/send", h.Send)
		r.Post("/send-bulk", h.SendBulk)
		r.Get("/logs", h.Logs)
		r.Get("/test-connection", h.TestConnection)
		r.Get("/stats", h.Stats)
	})
}

// SubmissionRoutes serves /api/amp.
type SubmissionRoutes interface {
	Submit(w http.ResponseWriter, r *http.Request)
	Proxy(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	GetByID(w http.ResponseWriter, r *http.Request)
}

// RegisterSubmissionHandler registers the AMP submission API.
func (s *Server) RegisterSubmissionHandler(h SubmissionRoutes) {
	s.api.Route("/amp", func(r chi.Router) {
		r.Post("/submit", h.Submit)
		r.Get("/proxy", h.Proxy)
		r.Post("/proxy", h.Proxy)
		r.Get("/submissions", h.List)
		r.Get("/submissions/{id}", h.GetByID)
	})
}

// WebFormRoutes serves /api/form.
type WebFormRoutes interface {
	Show(w http.ResponseWriter, r *http.Request)
	Submit(w http.ResponseWriter, r *http.Request)
}

// RegisterWebFormHandler registers the static fallback form.
func (s *Server) RegisterWebFormHandler(h WebFormRoutes) {
	s.api.Route("/form", func(r chi.Router) {
		r.Get("/resume-form", h.Show)
		r.Post("/resume-form", h.Submit)
	})
}

// Router returns the underlying Chi router for external route mounting.
func (s *Server) Router() *chi.Mux {
	return s.router
}

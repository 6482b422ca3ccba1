package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/nijaru/yt-summary/config"
	"github.com/nijaru/yt-summary/middleware"
	"github.com/nijaru/yt-summary/services/video"
	"github.com/nijaru/yt-summary/validation"
	"github.com/sirupsen/logrus"
)

type Server struct {
	video     *VideoHandler
	config    *config.Config
	logger    *logrus.Logger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer builds the HTTP server. Options are applied in order, so
// WithLogger should come before WithServices.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func WithServices(videoSvc video.Service) ServerOption {
	return func(s *Server) {
		s.video = NewVideoHandler(videoSvc, validation.NewValidator(), s.logger)
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if s.video != nil {
		s.addV1Routes(mux)
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	return s.middleware(mux)
}

func (s *Server) addV1Routes(mux *http.ServeMux) {
	const v1Prefix = "/api/v1"

	mux.HandleFunc("POST "+v1Prefix+"/evaluate", s.video.HandleEvaluate)
	mux.HandleFunc("GET "+v1Prefix+"/transcript", s.video.HandleTranscript)
	mux.HandleFunc("GET "+v1Prefix+"/evaluations/{id}", s.video.HandleGetEvaluation)
	mux.HandleFunc("DELETE "+v1Prefix+"/evaluations/{id}", s.video.HandleDeleteEvaluation)
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	flags := s.config.Middleware

	var middlewares []func(http.Handler) http.Handler
	if flags.EnableRequestID {
		middlewares = append(middlewares, middleware.RequestID())
	}
	if flags.EnableRecover {
		middlewares = append(middlewares, middleware.Recovery(s.logger))
	}
	if flags.EnableLogger {
		middlewares = append(middlewares, middleware.Logging(s.logger))
	}
	if flags.EnableCORS {
		middlewares = append(middlewares, middleware.CORS(s.config.CORS))
	}
	if flags.EnableTimeout {
		middlewares = append(middlewares, middleware.Timeout(s.config.RequestTimeout))
	}
	if flags.EnableRateLimit && s.config.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
		)
		middlewares = append(middlewares, limiter.Middleware)
	}

	return middleware.Chain(handler, middlewares...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   s.config.Version,
		"uptime":    time.Since(s.startTime).String(),
	}

	if s.config.Debug {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		status["debug"] = true
		status["goroutines"] = runtime.NumGoroutine()
		status["memory"] = map[string]any{
			"allocated": m.Alloc,
			"system":    m.Sys,
			"gc_cycles": m.NumGC,
		}
	}

	respondJSON(w, r, http.StatusOK, status)
}

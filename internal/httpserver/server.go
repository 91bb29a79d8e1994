package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"trailhead/backend/internal/config"
	authusecase "trailhead/backend/internal/usecase/auth"
	tourusecase "trailhead/backend/internal/usecase/tour"
	userusecase "trailhead/backend/internal/usecase/user"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer    *http.Server
	router        *http.ServeMux
	authService   *authusecase.Service
	userService   *userusecase.Service
	tourService   *tourusecase.Service
	log           *zap.SugaredLogger
	publicBaseURL string
	tokenLifetime time.Duration
	cookieSecure  bool
	addr          string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, authService *authusecase.Service, userService *userusecase.Service, tourService *tourusecase.Service, log *zap.SugaredLogger) *Server {
	mux := http.NewServeMux()
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	srv := &Server{
		router:        mux,
		authService:   authService,
		userService:   userService,
		tourService:   tourService,
		log:           log,
		publicBaseURL: cfg.PublicBaseURL,
		tokenLifetime: cfg.JWTExpiry,
		cookieSecure:  cfg.CookieSecure,
		addr:          addr,
	}

	handler := srv.withLogging(withSecurityHeaders(withCORS(mux, cfg.AllowedOrigins)))
	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying ServeMux so routes can be registered.
func (s *Server) Router() *http.ServeMux {
	return s.router
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}

// Package server exposes the food catalog and a chat completion endpoint over HTTP,
// keeping the provider credential on the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"diningguide/internal/logger"
	"diningguide/internal/services"
	"diningguide/pkg/diningtypes"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Config contains server configuration.
type Config struct {
	Host      string
	Port      int
	ImagesDir string
}

// Server wraps the router and its dependencies.
type Server struct {
	cfg      Config
	router   *gin.Engine
	handlers *Handlers
	metrics  *Metrics
	log      *log.Logger
}

// New builds the router. The catalog must already be initialized.
func New(cfg Config, catalog *services.CatalogService, provider diningtypes.CompletionProvider) *Server {
	if gin.Mode() == gin.DebugMode && logger.Logger.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		router:  gin.New(),
		metrics: NewMetrics(),
		log:     logger.NewStyledLogger("Server"),
	}
	s.handlers = NewHandlers(catalog, provider, s.metrics, s.log)

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.router.Use(s.metrics.Middleware())
	s.router.Use(corsMiddleware())

	s.routes()
	return s
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Requested-With"},
		MaxAge:          12 * time.Hour,
	})
}

func (s *Server) routes() {
	s.router.GET("/", s.handlers.Root)
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	api.GET("/foods", s.handlers.ListFoods)
	api.GET("/reload", s.handlers.ReloadFoods)
	api.POST("/chat", s.handlers.Chat)

	if info, err := os.Stat(s.cfg.ImagesDir); err == nil && info.IsDir() {
		s.router.Static("/images", s.cfg.ImagesDir)
	} else {
		s.log.Warn("Images directory not found; /images disabled", "path", s.cfg.ImagesDir)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("Request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	items, err := s.handlers.catalog.Load(ctx)
	s.metrics.RecordCatalog(len(items), err)
	if err != nil {
		s.log.Warn("Starting without catalog", "error", err)
	} else {
		s.log.Info("Catalog loaded", "items", len(items), "path", s.handlers.catalog.Source())
	}

	httpServer := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

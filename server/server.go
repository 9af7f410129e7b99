// Package server exposes the dashboard pages, chart images, datasets and the
// assistant over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spektr-org/tablero/assistant"
	"github.com/spektr-org/tablero/config"
	"github.com/spektr-org/tablero/dashboard"
	"github.com/spektr-org/tablero/dataset"
)

// Server is the HTTP API.
type Server struct {
	cfg       config.ServerConfig
	registry  *dataset.Registry
	dashboard *dashboard.Dashboard
	assistant *assistant.Service
	logger    *zap.Logger
	router    *gin.Engine
}

// New wires the routes. svc may be nil, in which case the assistant routes
// are not registered.
func New(cfg config.ServerConfig, registry *dataset.Registry, dash *dashboard.Dashboard, svc *assistant.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		registry:  registry,
		dashboard: dash,
		assistant: svc,
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	api := router.Group("/api")
	{
		api.GET("/ping", s.ping)

		api.GET("/datasets", s.listDatasets)
		api.GET("/datasets/:name", s.getDataset)
		api.GET("/datasets/:name/export.xlsx", s.exportDataset)
		api.POST("/datasets/:name/import", s.importDataset)

		api.GET("/pages/students", s.studentsPage)
		api.GET("/pages/cases", s.casesPage)
		api.GET("/pages/cases/charts/:chart", s.casesChart)

		if s.assistant != nil {
			api.POST("/assistant", s.generate)
			api.GET("/assistant/history/:session", s.history)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 server listening", zap.String("addr", httpServer.Addr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("🛑 shutdown signal received")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("❌ server shutdown error", zap.Error(err))
		return err
	}
	s.logger.Info("✅ server stopped gracefully")
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

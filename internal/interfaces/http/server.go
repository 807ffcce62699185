// Package http exposes the search engine over a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotu/molkit/internal/config"
	"github.com/robotu/molkit/internal/infrastructure/logging"
	"github.com/robotu/molkit/internal/search"
	"github.com/robotu/molkit/pkg/errors"
)

// Server wraps the gin engine with lifecycle management.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	cfg    config.ServerConfig
	logger logging.Logger
}

// NewServer builds the API server around a ready LocalSearch.  gatherer may
// be nil to disable the metrics endpoint.
func NewServer(cfg config.ServerConfig, engine *search.LocalSearch, gatherer prometheus.Gatherer, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("http")

	gin.SetMode(ginMode(cfg.Mode))
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogging(logger))
	router.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	h := &searchHandler{engine: engine, logger: logger}
	api := router.Group("/api/v1")
	{
		api.POST("/search/semantic", h.semantic)
		api.POST("/search/structure", h.structure)
	}

	return &Server{
		engine: router,
		cfg:    cfg,
		logger: logger,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start blocks serving requests until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logging.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, errors.ErrCodeInternal, "http server")
	}
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "http server shutdown")
	}
	return nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

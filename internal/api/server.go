// Package api exposes the operational HTTP surface: health, metrics, and
// manual triggers for crawls and maintenance.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polygraphy/digest/internal/config"
	"github.com/polygraphy/digest/internal/crawl"
	"github.com/polygraphy/digest/internal/logger"
)

// Crawler runs crawls on demand.
type Crawler interface {
	ProcessAll(ctx context.Context) (*crawl.Stats, error)
}

// Dispatcher enqueues a crawl task for one source.
type Dispatcher interface {
	DispatchCrawl(ctx context.Context, sourceID string) error
}

// Maintainer runs the article lifecycle sweep.
type Maintainer interface {
	RunMaintenance(ctx context.Context)
}

// Server is the admin HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
}

// NewRouter wires the HTTP routes.
func NewRouter(crawler Crawler, dispatcher Dispatcher, maintainer Maintainer, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/health", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/crawl", handleCrawlAll(crawler, log))
	v1.POST("/sources/:id/crawl", handleCrawlSource(dispatcher))
	v1.POST("/maintenance", handleMaintenance(maintainer))

	return router
}

// NewServer wires the routes and returns a server ready to start.
func NewServer(
	cfg config.ServerConfig,
	crawler Crawler,
	dispatcher Dispatcher,
	maintainer Maintainer,
	log logger.Logger,
) *Server {
	router := NewRouter(crawler, dispatcher, maintainer, log)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: log,
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logger.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCrawlAll crawls every source synchronously and reports stats. Meant
// for operators; scheduled crawls go through the queue instead.
func handleCrawlAll(crawler Crawler, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := crawler.ProcessAll(c.Request.Context())
		if err != nil {
			log.Error("manual crawl failed", logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// handleCrawlSource enqueues a crawl task for one source. The crawl itself
// runs on a worker, so this returns 202 with the queued source id.
func handleCrawlSource(dispatcher Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceID := c.Param("id")
		if err := dispatcher.DispatchCrawl(c.Request.Context(), sourceID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"source_id": sourceID, "status": "queued"})
	}
}

// handleMaintenance triggers the lifecycle sweep. The sweep is throttled by
// its daily marker, so repeated calls within a day are no-ops.
func handleMaintenance(maintainer Maintainer) gin.HandlerFunc {
	return func(c *gin.Context) {
		maintainer.RunMaintenance(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"status": "completed"})
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
		)
	}
}

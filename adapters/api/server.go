// Package api serves the metrics, time-series and experiment services over
// HTTP with gin.
package api

import (
	"fmt"
	"net/http"
	"time"

	"bizmetrics/app"
	"bizmetrics/internal"
	"bizmetrics/internal/errors"

	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes caps multipart uploads when no limit is configured
const DefaultMaxUploadBytes = 32 << 20

// Services bundles the application services the handlers delegate to
type Services struct {
	Metrics     *app.MetricsService
	Experiments *app.ExperimentService
	TimeSeries  *app.TimeSeriesService
}

// Server represents the HTTP API
type Server struct {
	router    *gin.Engine
	services  Services
	logger    *internal.Logger
	maxUpload int64
}

// NewServer wires the routes. maxUpload <= 0 selects DefaultMaxUploadBytes.
func NewServer(services Services, logger *internal.Logger, maxUpload int64) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	s := &Server{
		router:    gin.New(),
		services:  services,
		logger:    logger.With("api"),
		maxUpload: maxUpload,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, mostly for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until the listener fails
func (s *Server) Run(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.respondError(c, errors.InternalError(fmt.Sprintf("panic: %v", recovered)))
	}))
	s.router.Use(s.requestLogger())
}

// requestLogger logs one line per request at debug level and failures at warn
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		elapsed := float64(time.Since(start).Microseconds()) / 1000
		if status >= http.StatusInternalServerError {
			s.logger.Warn("%s %s -> %d (%.2fms)", c.Request.Method, c.Request.URL.Path, status, elapsed)
			return
		}
		s.logger.Debug("%s %s -> %d (%.2fms)", c.Request.Method, c.Request.URL.Path, status, elapsed)
	}
}

func (s *Server) setupRoutes() {
	s.router.NoRoute(func(c *gin.Context) {
		s.respondError(c, errors.NotFound("route "+c.Request.URL.Path))
	})

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")

	m := v1.Group("/metrics")
	m.GET("", s.listMetrics)
	m.GET("/available", s.availableMetrics)
	m.POST("/calculate", s.calculateMetrics)
	m.GET("/reports", s.listReports)
	m.GET("/reports/:id", s.getReport)

	ts := v1.Group("/timeseries")
	ts.POST("/trend", s.trend)
	ts.POST("/growth", s.growth)

	e := v1.Group("/experiments")
	e.POST("", s.createExperiment)
	e.GET("", s.listExperiments)
	e.POST("/analyze", s.analyzeExperiment)
	e.GET("/:id", s.getExperiment)
	e.DELETE("/:id", s.deleteExperiment)
	e.PUT("/:id/results", s.submitResults)
	e.GET("/:id/report", s.experimentReport)
}

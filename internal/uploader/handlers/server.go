// Package handlers provides the HTTP server for the upload API, bridging the
// transport layer and the services, translating between JSON or multipart
// requests and domain models.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gartstein/fieldfiles/internal/uploader/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Server holds the gin engine and the HTTP server it is mounted on.
type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	logger       *zap.Logger
	httpEndpoint string
}

// Option configures a Server.
type Option func(*Server)

// WithCORS allows credentialed cross-site requests from origins.
func WithCORS(origins []string) Option {
	return func(s *Server) {
		if len(origins) == 0 {
			return
		}
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
}

// WithMetrics records request metrics and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.engine.Use(m.Middleware())
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// WithMaxMultipartMemory bounds the in-memory part of a multipart form.
func WithMaxMultipartMemory(bytes int64) Option {
	return func(s *Server) {
		if bytes > 0 {
			s.engine.MaxMultipartMemory = bytes
		}
	}
}

// NewServer constructs a Server listening on httpPort. Options run in order,
// before any route is registered.
func NewServer(httpPort int, logger *zap.Logger, opts ...Option) *Server {
	logger = logger.Named("http_server")

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(requestID(), accessLog(logger), recovery(logger))
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, failure(msgNoRoute))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, failure(msgNoMethod))
	})

	s := &Server{
		engine:       engine,
		logger:       logger,
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Addr:              s.httpEndpoint,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// RegisterHandler mounts the API routes of h.
func (s *Server) RegisterHandler(h *Handler) {
	h.Register(s.engine)
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP serve error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Server stopped")
}

// requestID keeps an incoming X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("Request failed", fields...)
			return
		}
		logger.Info("Request served", fields...)
	}
}

// recovery turns a panic into the standard failure envelope.
func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("Panic while serving request",
			zap.Any("panic", recovered),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, failure(msgInternal))
	})
}

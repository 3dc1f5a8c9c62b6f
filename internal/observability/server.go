package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server exposes /health, /metrics and the most recent probe report.
type Server struct {
	Node string
	Addr string

	router   *gin.Engine
	mu       sync.RWMutex
	report   any
	started  time.Time
	shutdown time.Duration
}

func NewServer(node, addr string, corsOrigins []string) *Server {
	RegisterMetrics()
	r := gin.New()
	s := &Server{
		Node:     node,
		Addr:     addr,
		router:   r,
		started:  time.Now(),
		shutdown: 5 * time.Second,
	}
	r.Use(gin.Recovery())
	r.Use(s.observe())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.routes()
	return s
}

// observe logs and counts each request under its route template; requests
// that match no route are grouped as "unmatched".
func (s *Server) observe() gin.HandlerFunc {
	logger := log.Logger.With().Str("node", s.Node).Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		RecordHTTPRequest(route, status, elapsed)

		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		}
		event.
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Bool("report_ready", s.hasReport()).
			Msg("report surface request")
	}
}

func (s *Server) hasReport() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report != nil
}

func (s *Server) Router() *gin.Engine { return s.router }

// SetReport publishes v on /report. v must be JSON serialisable.
func (s *Server) SetReport(v any) {
	s.mu.Lock()
	s.report = v
	s.mu.Unlock()
}

func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"node":   s.Node,
			"uptime": time.Since(s.started).Round(time.Second).String(),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/report", func(c *gin.Context) {
		s.mu.RLock()
		report := s.report
		s.mu.RUnlock()
		if report == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no report yet"})
			return
		}
		c.JSON(http.StatusOK, report)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("node", s.Node).Str("addr", s.Addr).Msg("http listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

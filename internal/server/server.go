// Package server exposes the service over a gin JSON API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/annotate/internal/metrics"
	"github.com/tgienger/annotate/internal/service"
)

// WorkerHeader identifies the calling worker on annotation writes
const WorkerHeader = "X-Worker-ID"

// Server holds the router and its collaborators
type Server struct {
	svc      *service.Service
	log      logrus.FieldLogger
	metrics  metrics.Collector
	gatherer prometheus.Gatherer
	engine   *gin.Engine
}

// New builds the router. A nil gatherer disables /metrics.
func New(svc *service.Service, log logrus.FieldLogger, collector metrics.Collector, gatherer prometheus.Gatherer) *Server {
	if collector == nil {
		collector = metrics.NewNop()
	}
	s := &Server{svc: svc, log: log, metrics: collector, gatherer: gatherer}

	r := gin.New()
	r.Use(gin.Recovery(), s.instrument())
	s.routes(r)
	s.engine = r
	return s
}

func (s *Server) routes(r *gin.Engine) {
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	tasks := api.Group("/tasks")
	tasks.POST("", s.createTask)
	tasks.GET("", s.listTasks)
	tasks.GET("/:id", s.getTask)
	tasks.POST("/:id/partition", s.partitionTask)
	tasks.PUT("/:id/status", s.updateStatus)
	tasks.PUT("/:id/annotations/:index", s.saveAnnotation)
	tasks.GET("/:id/annotations/:index", s.getAnnotation)
	tasks.GET("/:id/progress", s.taskProgress)
	tasks.PUT("/:id/assignment", s.assign)
	tasks.GET("/:id/assignment", s.getAssignment)
	tasks.GET("/:id/export", s.export)

	workers := api.Group("/workers")
	workers.GET("/:id/tasks", s.workerTasks)
	workers.GET("/:id/rollup", s.workerRollup)
	workers.GET("/:id/stats", s.workerStats)

	api.GET("/leaderboard", s.leaderboard)
	api.POST("/users", s.register)
	api.POST("/login", s.login)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// instrument logs and counts every request by its route pattern
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, c.Request.Method, c.Writer.Status(), elapsed.Seconds())

		entry := s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"route":   route,
			"status":  c.Writer.Status(),
			"elapsed": elapsed,
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Error("request failed")
			return
		}
		entry.Debug("request")
	}
}

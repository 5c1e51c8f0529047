// Package server is the HTTP surface the portal UI talks to. It maps JSON
// requests onto the repositories and renders every failure as an error body
// built from the handled AppError.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grievance/internal/handler"
	"grievance/internal/metrics"
	"grievance/internal/notify"
	"grievance/internal/repository"
	"grievance/internal/session"
)

// CheckFunc reports the health of one dependency.
type CheckFunc func(ctx context.Context) error

// Deps are the collaborators of the server.
type Deps struct {
	Handler       *handler.Handler
	Complaints    *repository.Complaints
	Notifications *repository.Notifications
	Profiles      *repository.Profiles
	Analytics     *repository.Analytics
	Feed          *notify.Feed
	Session       session.Provider
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Checks        map[string]CheckFunc
	Logger        *slog.Logger
}

// Server serves the portal API.
type Server struct {
	d      Deps
	log    *slog.Logger
	engine *gin.Engine
	srv    *http.Server
}

// New builds the router. addr is used by Run.
func New(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Session == nil {
		d.Session = session.NewMemory()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Feed == nil {
		d.Feed = notify.NewFeed(0)
	}

	s := &Server{d: d, log: d.Logger.With(slog.String("component", "server"))}

	r := gin.New()
	r.Use(s.requestContext(), s.observe(), d.Handler.GinRecovery())
	s.routes(r)

	s.engine = r
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.d.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")

	c := api.Group("/complaints")
	c.GET("", s.listComplaints)
	c.POST("", s.createComplaint)
	c.GET("/:id", s.getComplaint)
	c.PATCH("/:id", s.updateComplaint)
	c.POST("/:id/status", s.updateComplaintStatus)
	c.DELETE("/:id", s.deleteComplaint)

	n := api.Group("/notifications")
	n.GET("", s.listNotifications)
	n.POST("/:id/read", s.markNotificationRead)
	n.GET("/feed", s.feed)
	n.DELETE("/feed/:id", s.dismiss)

	api.GET("/profile", s.getProfile)
	api.PATCH("/profile", s.updateProfile)
	api.GET("/analytics/summary", s.analyticsSummary)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.d.Checks))
	for name, check := range s.d.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}

package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"grievance/internal/handler"
	"grievance/internal/session"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
)

// requestContext puts the request metadata and caller identity into the
// request context so handled errors carry them.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := handler.WithRequest(c.Request.Context(), c.Request.URL.String(), c.Request.UserAgent())
		id := session.Identity{
			UserID:    c.GetHeader(HeaderUserID),
			SessionID: c.GetHeader(HeaderSessionID),
		}
		if id.UserID != "" || id.SessionID != "" {
			ctx = session.WithIdentity(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// observe records latency and writes an access log line.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		d := time.Since(start)
		status := c.Writer.Status()
		s.d.Metrics.ObserveHTTP(c.Request.Method, route, status, d)

		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelWarn
		}
		s.log.LogAttrs(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("took", d),
		)
	}
}

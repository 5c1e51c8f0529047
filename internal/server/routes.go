package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"grievance/internal/domain"
	"grievance/internal/handler"
	"grievance/internal/shared"
)

// statusClientClosed is logged when the caller went away mid-request.
const statusClientClosed = 499

func (s *Server) fail(c *gin.Context, err error) {
	ctx := c.Request.Context()
	if ctx.Err() != nil && shared.IsCanceled(err) {
		c.AbortWithStatus(statusClientClosed)
		return
	}
	var appErr *shared.AppError
	if !errors.As(err, &appErr) {
		appErr = s.d.Handler.HandleError(ctx, err, handler.WithLabel("http:"+c.FullPath()))
	}
	status, body := handler.Response(appErr)
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		s.fail(c, shared.NewInputError("body", "malformed JSON: "+err.Error()))
		return false
	}
	return true
}

func (s *Server) userID(c *gin.Context) (string, bool) {
	if id := s.d.Session.UserID(c.Request.Context()); id != "" {
		return id, true
	}
	s.fail(c, shared.NewRemoteError(http.StatusUnauthorized, "not_authenticated", "authentication required", nil))
	return "", false
}

func (s *Server) listComplaints(c *gin.Context) {
	var f domain.ComplaintFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		s.fail(c, shared.NewInputError("query", err.Error()))
		return
	}
	page, err := s.d.Complaints.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getComplaint(c *gin.Context) {
	v, err := s.d.Complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) createComplaint(c *gin.Context) {
	var in domain.ComplaintInput
	if !s.bindJSON(c, &in) {
		return
	}
	v, err := s.d.Complaints.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (s *Server) updateComplaint(c *gin.Context) {
	var in domain.ComplaintUpdate
	if !s.bindJSON(c, &in) {
		return
	}
	v, err := s.d.Complaints.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) updateComplaintStatus(c *gin.Context) {
	var in domain.StatusChange
	if !s.bindJSON(c, &in) {
		return
	}
	v, err := s.d.Complaints.UpdateStatus(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) deleteComplaint(c *gin.Context) {
	if err := s.d.Complaints.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listNotifications(c *gin.Context) {
	var q struct {
		Unread bool `form:"unread"`
		Page   int  `form:"page"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		s.fail(c, shared.NewInputError("query", err.Error()))
		return
	}
	page, err := s.d.Notifications.List(c.Request.Context(), q.Unread, q.Page)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) markNotificationRead(c *gin.Context) {
	v, err := s.d.Notifications.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) feed(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": s.d.Feed.List()})
}

func (s *Server) dismiss(c *gin.Context) {
	if !s.d.Feed.Dismiss(c.Param("id")) {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getProfile(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		return
	}
	v, err := s.d.Profiles.Get(c.Request.Context(), uid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) updateProfile(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		return
	}
	var in domain.ProfileUpdate
	if !s.bindJSON(c, &in) {
		return
	}
	v, err := s.d.Profiles.Update(c.Request.Context(), uid, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) analyticsSummary(c *gin.Context) {
	period := c.DefaultQuery("period", "month")
	v, err := s.d.Analytics.Summary(c.Request.Context(), period)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

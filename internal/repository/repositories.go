package repository

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"grievance/internal/cache"
	"grievance/internal/domain"
	"grievance/internal/handler"
)

const (
	ComplaintsPath    = "/api/complaints/"
	NotificationsPath = "/api/notifications/"
	ProfilesPath      = "/api/profiles/"
	AnalyticsPath     = "/api/analytics/summary/"
)

// Complaints is the complaint repository.
type Complaints struct {
	res *Resource[domain.Complaint]
	h   *handler.Handler
}

func NewComplaints(d Deps) *Complaints {
	return &Complaints{
		res: NewResource[domain.Complaint](d, Spec{
			Name:      "complaints",
			Singular:  "complaint",
			Path:      ComplaintsPath,
			ListTTL:   2 * time.Minute,
			EntityTTL: 5 * time.Minute,
		}),
		h: d.Handler,
	}
}

// Resource exposes the cache keys of the repository.
func (c *Complaints) Resource() *Resource[domain.Complaint] { return c.res }

func (c *Complaints) List(ctx context.Context, f domain.ComplaintFilter) (domain.Page[domain.Complaint], error) {
	return c.res.List(ctx, f.Query())
}

func (c *Complaints) Get(ctx context.Context, id string) (domain.Complaint, error) {
	return c.res.Get(ctx, id)
}

// Create validates in and files the complaint.
func (c *Complaints) Create(ctx context.Context, in domain.ComplaintInput) (domain.Complaint, error) {
	if err := c.check(ctx, in, "create"); err != nil {
		return domain.Complaint{}, err
	}
	return c.res.Create(ctx, in)
}

func (c *Complaints) Update(ctx context.Context, id string, in domain.ComplaintUpdate) (domain.Complaint, error) {
	if err := c.check(ctx, in, "update"); err != nil {
		return domain.Complaint{}, err
	}
	return c.res.Update(ctx, id, in)
}

// UpdateStatus moves a complaint along its lifecycle. Transitions the
// current state does not allow are rejected before the API is called.
func (c *Complaints) UpdateStatus(ctx context.Context, id string, in domain.StatusChange) (domain.Complaint, error) {
	if err := c.check(ctx, in, "status"); err != nil {
		return domain.Complaint{}, err
	}
	cur, err := c.res.Get(ctx, id)
	if err != nil {
		return domain.Complaint{}, err
	}
	if err := domain.CheckTransition(cur.Status, in.Status); err != nil {
		return domain.Complaint{}, c.h.HandleError(ctx, err,
			handler.WithValue("operation", "complaints.status"),
			handler.WithValue("id", id))
	}
	return c.res.Action(ctx, id, "status", in)
}

func (c *Complaints) Delete(ctx context.Context, id string) error {
	return c.res.Remove(ctx, id)
}

func (c *Complaints) check(ctx context.Context, in any, op string) error {
	return validated(ctx, c.h, in, "complaints."+op)
}

// Notifications is the notification repository.
type Notifications struct {
	res *Resource[domain.Notification]
}

func NewNotifications(d Deps) *Notifications {
	return &Notifications{
		res: NewResource[domain.Notification](d, Spec{
			Name:      "notifications",
			Singular:  "notification",
			Path:      NotificationsPath,
			ListTTL:   time.Minute,
			EntityTTL: time.Minute,
		}),
	}
}

func (n *Notifications) Resource() *Resource[domain.Notification] { return n.res }

// List returns notifications, optionally only the unread ones.
func (n *Notifications) List(ctx context.Context, unreadOnly bool, page int) (domain.Page[domain.Notification], error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("is_read", "false")
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	return n.res.List(ctx, q)
}

// MarkRead flags one notification as read. Cached listings are dropped.
func (n *Notifications) MarkRead(ctx context.Context, id string) (domain.Notification, error) {
	return n.res.Action(ctx, id, "read", nil)
}

// Profiles is the profile repository.
type Profiles struct {
	res *Resource[domain.Profile]
	h   *handler.Handler
}

func NewProfiles(d Deps) *Profiles {
	return &Profiles{
		res: NewResource[domain.Profile](d, Spec{
			Name:      "profiles",
			Singular:  "profile",
			Path:      ProfilesPath,
			ListTTL:   30 * time.Minute,
			EntityTTL: 30 * time.Minute,
		}),
		h: d.Handler,
	}
}

func (p *Profiles) Resource() *Resource[domain.Profile] { return p.res }

func (p *Profiles) Get(ctx context.Context, userID string) (domain.Profile, error) {
	return p.res.Get(ctx, userID)
}

func (p *Profiles) Update(ctx context.Context, userID string, in domain.ProfileUpdate) (domain.Profile, error) {
	if err := validated(ctx, p.h, in, "profiles.update"); err != nil {
		return domain.Profile{}, err
	}
	return p.res.Update(ctx, userID, in)
}

// Analytics serves the read-only complaint statistics.
type Analytics struct {
	api   API
	h     *handler.Handler
	store cache.Store[domain.AnalyticsSummary]
	ttl   time.Duration
	log   *slog.Logger
}

func NewAnalytics(d Deps) *Analytics {
	if d.Memory == nil && d.Redis == nil {
		d.Memory = cache.NewMemory(cache.WithMetrics(d.Metrics))
	}
	return &Analytics{
		api:   d.API,
		h:     d.Handler,
		store: storeFor[domain.AnalyticsSummary](d),
		ttl:   5 * time.Minute,
		log:   d.logger().With(slog.String("resource", "analytics")),
	}
}

// SummaryKey is the cache key for period.
func SummaryKey(period string) string { return "analytics_summary_" + period }

func (a *Analytics) Summary(ctx context.Context, period string) (domain.AnalyticsSummary, error) {
	if err := validated(ctx, a.h, domain.AnalyticsQuery{Period: period}, "analytics.summary"); err != nil {
		return domain.AnalyticsSummary{}, err
	}
	path := AnalyticsPath + "?" + url.Values{"period": {period}}.Encode()
	return cached(ctx, a.log, a.store, SummaryKey(period), a.ttl, func(ctx context.Context) (domain.AnalyticsSummary, error) {
		return handler.Do(ctx, a.h, func(ctx context.Context) (domain.AnalyticsSummary, error) {
			var s domain.AnalyticsSummary
			err := a.api.Get(ctx, path, &s)
			return s, err
		}, handler.AsyncOptions{Context: map[string]any{"operation": "analytics.summary", "period": period}})
	})
}

// Clear drops every cached summary.
func (a *Analytics) Clear(ctx context.Context) error {
	return a.store.Clear(ctx, "analytics_")
}

func validated(ctx context.Context, h *handler.Handler, in any, op string) error {
	err := domain.Validate(in)
	if err == nil {
		return nil
	}
	return h.HandleError(ctx, err, handler.WithValue("operation", op))
}

package notify

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is one entry of the Feed.
type Notification struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (n Notification) expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

// Feed keeps the most recent notifications for the UI to poll. Auto-dismissed
// entries disappear once their duration has elapsed; persistent ones stay
// until dismissed or pushed out by newer entries.
type Feed struct {
	mu    sync.Mutex
	items []Notification
	limit int
	now   func() time.Time
}

// NewFeed creates a Feed holding at most limit entries (default 50).
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit, now: time.Now}
}

// Notify implements Notifier.
func (f *Feed) Notify(_ context.Context, p Policy, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      p.Kind,
		Title:     title,
		Message:   message,
		CreatedAt: now,
	}
	if p.AutoDismiss() {
		exp := now.Add(p.Duration)
		n.ExpiresAt = &exp
	}
	f.items = append(f.items, n)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = slices.Delete(f.items, 0, over)
	}
}

// List returns the live notifications, newest first. Expired entries are
// dropped.
func (f *Feed) List() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.items = slices.DeleteFunc(f.items, func(n Notification) bool { return n.expired(now) })

	out := slices.Clone(f.items)
	slices.Reverse(out)
	return out
}

// Dismiss removes a notification and reports whether it existed.
func (f *Feed) Dismiss(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	before := len(f.items)
	f.items = slices.DeleteFunc(f.items, func(n Notification) bool { return n.ID == id })
	return len(f.items) != before
}

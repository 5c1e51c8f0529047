// Package notify is the user notification surface. Handled errors are
// announced with a Policy derived from their severity, which decides the
// visual treatment and how long the notice stays on screen.
package notify

import (
	"context"
	"log/slog"
	"time"

	"grievance/internal/shared"
)

// Kind is the visual treatment of a notification.
type Kind string

const (
	KindPersistent Kind = "persistent"
	KindError      Kind = "error"
	KindWarning    Kind = "warning"
	KindToast      Kind = "toast"
)

// Policy pairs a treatment with an auto-dismiss duration.
// A zero Duration never auto-dismisses.
type Policy struct {
	Kind     Kind          `json:"kind"`
	Duration time.Duration `json:"duration"`
}

var (
	Persistent = Policy{Kind: KindPersistent}
	Error      = Policy{Kind: KindError, Duration: 6 * time.Second}
	Warning    = Policy{Kind: KindWarning, Duration: 4 * time.Second}
	Toast      = Policy{Kind: KindToast, Duration: 3 * time.Second}
)

// PolicyFor maps a severity to its notification policy.
func PolicyFor(s shared.Severity) Policy {
	switch s {
	case shared.SeverityCritical:
		return Persistent
	case shared.SeverityHigh:
		return Error
	case shared.SeverityMedium:
		return Warning
	default:
		return Toast
	}
}

// AutoDismiss reports whether the notice disappears on its own.
func (p Policy) AutoDismiss() bool { return p.Duration > 0 }

// Notifier shows a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, p Policy, title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, p Policy, title, message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, p Policy, title, message string) {
	f(ctx, p, title, message)
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, p Policy, title, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, p, title, message)
		}
	}
}

// Log writes notifications to a logger.
type Log struct {
	log *slog.Logger
}

// NewLog creates a Log notifier. A nil logger uses slog.Default.
func NewLog(l *slog.Logger) *Log {
	if l == nil {
		l = slog.Default()
	}
	return &Log{log: l}
}

// Notify implements Notifier.
func (n *Log) Notify(ctx context.Context, p Policy, title, message string) {
	lvl := slog.LevelInfo
	switch p.Kind {
	case KindPersistent, KindError:
		lvl = slog.LevelError
	case KindWarning:
		lvl = slog.LevelWarn
	}
	n.log.Log(ctx, lvl, "notification",
		slog.String("kind", string(p.Kind)),
		slog.Duration("duration", p.Duration),
		slog.String("title", title),
		slog.String("message", message),
	)
}

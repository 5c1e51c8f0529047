// Package telegram forwards severe user notifications to an operator chat.
package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"grievance/internal/notify"
)

// Sender is the part of *bot.Bot used by Notifier.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Config configures Notifier.
type Config struct {
	Token  string
	ChatID int64
	// Window suppresses repeats of the same title (default: 1 minute).
	Window time.Duration
	// Timeout bounds one send (default: 5s).
	Timeout time.Duration
	// MaxInFlight caps concurrent sends; extra messages are dropped (default: 4).
	MaxInFlight int
}

// Notifier sends persistent and error notifications to Telegram in the
// background. Warnings and toasts are ignored.
type Notifier struct {
	sender   Sender
	chatID   int64
	timeout  time.Duration
	throttle *Throttle
	log      *slog.Logger
	slots    chan struct{}
	wg       sync.WaitGroup
}

// New creates a Notifier backed by a go-telegram bot.
func New(cfg Config, log *slog.Logger) (*Notifier, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram notifier: token and chat id are required")
	}
	b, err := bot.New(cfg.Token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("telegram notifier: %w", err)
	}
	return NewWithSender(b, cfg, log), nil
}

// NewWithSender creates a Notifier using an existing sender.
func NewWithSender(s Sender, cfg Config, log *slog.Logger) *Notifier {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		sender:   s,
		chatID:   cfg.ChatID,
		timeout:  cfg.Timeout,
		throttle: NewThrottle(cfg.Window),
		log:      log,
		slots:    make(chan struct{}, cfg.MaxInFlight),
	}
}

// Notify implements notify.Notifier. It returns before the message is sent.
func (n *Notifier) Notify(ctx context.Context, p notify.Policy, title, message string) {
	if p.Kind != notify.KindPersistent && p.Kind != notify.KindError {
		return
	}
	if !n.throttle.Allow(title) {
		return
	}

	icon := "⚠️"
	if p.Kind == notify.KindPersistent {
		icon = "🚨"
	}
	params := &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      fmt.Sprintf("%s <b>%s</b>\n%s", icon, html.EscapeString(title), html.EscapeString(message)),
		ParseMode: models.ParseModeHTML,
	}

	select {
	case n.slots <- struct{}{}:
	default:
		n.log.Warn("telegram notify dropped", slog.String("title", title))
		return
	}
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() { <-n.slots }()
		n.send(ctx, title, params)
	}()
}

func (n *Notifier) send(ctx context.Context, title string, params *bot.SendMessageParams) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		n.log.Warn("telegram notify failed", slog.String("title", title), slog.Any("error", err))
	}
}

// Wait blocks until every started send has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"grievance/internal/adapter/scheduler"
	"grievance/internal/adapter/telegram"
	"grievance/internal/cache"
	"grievance/internal/config"
	"grievance/internal/handler"
	"grievance/internal/metrics"
	"grievance/internal/notify"
	"grievance/internal/platform/httpclient"
	"grievance/internal/platform/logger"
	"grievance/internal/platform/sqlite"
	"grievance/internal/reporting"
	"grievance/internal/repository"
	"grievance/internal/server"
	"grievance/internal/session"
	"grievance/internal/shared"
	"grievance/pkg/retry"
)

const clientName = "grievance-portal"

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg), nil
}

// NewWithConfig creates an App from an already loaded configuration.
func NewWithConfig(cfg config.Config) *App {
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "portal",
	})
	return &App{cfg: cfg, log: log}
}

// components are the running parts of the portal.
type components struct {
	log       *slog.Logger
	server    *server.Server
	scheduler *scheduler.Scheduler
	remote    *reporting.RemoteLogHandler
	buffer    *reporting.Buffer
	closers   []func() error
}

func (c *components) close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	defer func() { _ = logger.Close(a.log) }()
	a.log.Info("starting", slog.String("addr", a.cfg.HTTP.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.close(); err != nil {
			a.log.Warn("close", slog.Any("err", err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.server.Run(gctx) })
	g.Go(func() error { return c.scheduler.Run(gctx) })
	if c.remote != nil {
		g.Go(func() error { return c.remote.Run(gctx) })
	}
	err = g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.buffer.Flush(flushCtx)
	c.buffer.Wait()

	c.log.Info("stopped")
	return err
}

func (a *App) build(ctx context.Context) (_ *components, err error) {
	cfg := a.cfg
	c := &components{log: a.log}
	defer func() {
		if err != nil {
			_ = c.close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mt := metrics.New(reg)

	db, err := sqlite.Open(ctx, cfg.Session.DBPath, sqlite.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	c.closers = append(c.closers, db.Close)
	sess, err := session.Open(ctx, db)
	if err != nil {
		return nil, err
	}

	// Error and log delivery must not feed back into the remote log handler.
	sinkClient := httpclient.New(
		httpclient.WithBaseURL(cfg.API.BaseURL),
		httpclient.WithTimeout(cfg.API.Timeout),
		httpclient.WithLogger(a.log),
	)
	if cfg.Env == "prod" {
		c.remote = reporting.NewRemoteLogHandler(reporting.NewLogSink(sinkClient, 5*time.Second), reporting.RemoteLogOptions{
			Level: logger.LevelFromString(cfg.Log.RemoteLevel),
			Context: func(ctx context.Context) map[string]any {
				return map[string]any{"sessionId": sess.SessionID(ctx), "userId": sess.UserID(ctx)}
			},
		})
		c.log = logger.Tee(a.log, c.remote)
		mt.TrackDroppedLogs(c.remote.Dropped)
	}
	log := c.log

	var sink reporting.Sink = reporting.NewHTTPSink(sinkClient, 10*time.Second)
	if cfg.Errors.Sink == "local" {
		sink = reporting.NewLocalSink(a.log)
	}
	c.buffer = reporting.NewBuffer(sink,
		reporting.WithCapacity(cfg.Errors.BufferCapacity),
		reporting.WithThreshold(cfg.Errors.BufferThreshold),
		reporting.WithLogger(a.log),
		reporting.WithMetrics(mt),
		reporting.WithAsync(),
	)

	feed := notify.NewFeed(0)
	notifiers := notify.Multi{feed, notify.NewLog(log)}
	if cfg.Telegram.Token != "" {
		tg, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, ChatID: cfg.Telegram.ChatID}, log)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
		c.closers = append(c.closers, func() error { tg.Wait(); return nil })
	}

	coord, err := retry.NewCoordinator(retry.Config{
		MaxRetries: cfg.Retry.Max,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
		Multiplier: 2,
		OnRetry: func(id string, attempt int, err error, delay time.Duration) {
			mt.Retry(string(shared.Categorize(err)))
			log.Warn("retrying",
				slog.String("operation_id", id),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("err", err))
		},
	})
	if err != nil {
		return nil, err
	}

	h, err := handler.New(handler.Deps{
		Reporter: c.buffer,
		Notifier: notifiers,
		Retry:    coord,
		Session:  sess,
		Logger:   log,
		Metrics:  mt,
	})
	if err != nil {
		return nil, err
	}

	// Logged URLs never include the query string.
	apiOpts := []httpclient.Option{
		httpclient.WithBaseURL(cfg.API.BaseURL),
		httpclient.WithTimeout(cfg.API.Timeout),
		httpclient.WithLogger(log),
		httpclient.WithHeaders(map[string]string{"X-Client": clientName}),
		httpclient.WithURLRedactor(httpclient.StripQuery),
	}
	if token := cfg.API.Token; token != "" {
		apiOpts = append(apiOpts, httpclient.WithToken(func(context.Context) string { return token }))
	}

	deps := repository.Deps{
		API:       httpclient.New(apiOpts...),
		Handler:   h,
		Namespace: cfg.Cache.Namespace,
		Metrics:   mt,
		Logger:    log,
	}
	checks := map[string]server.CheckFunc{"session": sess.Check}

	var purger scheduler.Purger
	if cfg.Cache.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{URL: cfg.Cache.RedisURL, Namespace: cfg.Cache.Namespace})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rdb.Close)
		deps.Redis = rdb
		checks["cache"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		mem := cache.NewMemory(cache.WithMaxEntries(cfg.Cache.MaxEntries), cache.WithMetrics(mt))
		deps.Memory = mem
		purger = mem
	}

	c.server = server.New(cfg.HTTP.Addr, server.Deps{
		Handler:       h,
		Complaints:    repository.NewComplaints(deps),
		Notifications: repository.NewNotifications(deps),
		Profiles:      repository.NewProfiles(deps),
		Analytics:     repository.NewAnalytics(deps),
		Feed:          feed,
		Session:       sess,
		Metrics:       mt,
		Gatherer:      reg,
		Checks:        checks,
		Logger:        log,
	})

	c.scheduler = scheduler.New(ctx, scheduler.Config{
		Logger: log,
		Hooks:  scheduler.JobHooks{OnJobError: h.JobErrorHook(ctx)},
	})
	if err := c.scheduler.Register(scheduler.Maintenance{
		Buffer:        c.buffer,
		FlushSchedule: cfg.Errors.FlushSchedule,
		Cache:         purger,
		PurgeInterval: cfg.Cache.PurgeInterval,
	}); err != nil {
		return nil, err
	}

	return c, nil
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one run of a scheduled job.
type JobFunc func(ctx context.Context) error

// JobOptions configure a job.
type JobOptions struct {
	// Name is used in logs and passed to the hooks.
	Name string
	// Timeout bounds one run when positive.
	Timeout time.Duration
	// SkipIfRunning drops a tick while the previous run is still active.
	SkipIfRunning bool
}

// JobHooks observe job runs. All are optional.
type JobHooks struct {
	OnJobFinish func(job string, took time.Duration, err error)
	OnJobError  func(job string, err error)
}

// Config configures a Scheduler.
type Config struct {
	Logger *slog.Logger
	Hooks  JobHooks
}

type job struct {
	fn      JobFunc
	opts    JobOptions
	running sync.Mutex
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

// Scheduler runs cron and fixed-interval jobs until stopped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	hooks  JobHooks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// parser accepts both five and six field specs and descriptors like
// "@every 30s".
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a Scheduler bound to parent. Canceling parent stops all jobs.
func New(parent context.Context, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(parent)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "scheduler"))

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLogger{logger: logger}),
		),
		logger: logger,
		hooks:  cfg.Hooks,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddCronJob schedules fn on a cron spec.
func (s *Scheduler) AddCronJob(spec string, fn JobFunc, opts JobOptions) (cron.EntryID, error) {
	j := &job{fn: fn, opts: opts}
	id, err := s.cron.AddFunc(spec, func() { s.run(j) })
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", opts.Name, err)
	}
	s.logger.Info("cron job added", "name", opts.Name, "schedule", spec)
	return id, nil
}

// AddTickerJob runs fn every interval until the scheduler stops.
func (s *Scheduler) AddTickerJob(interval time.Duration, fn JobFunc, opts JobOptions) {
	j := &job{fn: fn, opts: opts}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				s.run(j)
			case <-s.ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("ticker job added", "name", opts.Name, "interval", interval)
}

// Start starts the cron runner. Calling it again is a no-op.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.cron.Start()
		go func() {
			<-s.ctx.Done()
			s.stopOnce.Do(s.stop)
		}()
	})
}

// Stop stops every job and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stopOnce.Do(s.stop)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("stop deadline exceeded, jobs still running")
		return ctx.Err()
	}
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

func (s *Scheduler) stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(j *job) {
	name := j.opts.Name
	if name == "" {
		name = "unnamed"
	}

	if j.opts.SkipIfRunning {
		if !j.running.TryLock() {
			s.logger.Debug("skipping run, still running", "name", name)
			return
		}
		defer j.running.Unlock()
	}

	ctx := s.ctx
	if j.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.call(ctx, j.fn)
	took := time.Since(start)

	if s.hooks.OnJobFinish != nil {
		s.hooks.OnJobFinish(name, took, err)
	}
	if err != nil {
		s.logger.Error("job failed", "name", name, "error", err, "took", took)
		if s.hooks.OnJobError != nil {
			s.hooks.OnJobError(name, err)
		}
		return
	}
	s.logger.Debug("job done", "name", name, "took", took)
}

func (s *Scheduler) call(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

package scheduler

import (
	"context"
	"errors"
	"time"
)

// Flusher drains buffered error reports.
type Flusher interface {
	Flush(ctx context.Context)
}

// Purger drops expired cache entries and returns how many went.
type Purger interface {
	PurgeExpired() int
}

// Maintenance are the portal's housekeeping jobs.
type Maintenance struct {
	Buffer        Flusher
	FlushSchedule string
	Cache         Purger
	PurgeInterval time.Duration
}

// Register schedules the jobs of m. A nil Buffer or Cache skips its job.
func (s *Scheduler) Register(m Maintenance) error {
	if m.Buffer != nil {
		if m.FlushSchedule == "" {
			return errors.New("scheduler: flush schedule is required")
		}
		_, err := s.AddCronJob(m.FlushSchedule, func(ctx context.Context) error {
			m.Buffer.Flush(ctx)
			return nil
		}, JobOptions{Name: "flush-errors", Timeout: 30 * time.Second, SkipIfRunning: true})
		if err != nil {
			return err
		}
	}

	if m.Cache != nil && m.PurgeInterval > 0 {
		s.AddTickerJob(m.PurgeInterval, func(context.Context) error {
			if n := m.Cache.PurgeExpired(); n > 0 {
				s.logger.Debug("cache purged", "entries", n)
			}
			return nil
		}, JobOptions{Name: "purge-cache", SkipIfRunning: true})
	}
	return nil
}

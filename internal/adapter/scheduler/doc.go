// Package scheduler runs background jobs on cron specs
// (github.com/robfig/cron/v3) or fixed intervals.
//
// Jobs get the scheduler context, optionally bounded by a timeout. Panics
// are recovered and turned into errors; errors are logged and passed to
// JobHooks.OnJobError, which the application points at the error handler:
//
//	s := scheduler.New(ctx, scheduler.Config{
//		Logger: log,
//		Hooks:  scheduler.JobHooks{OnJobError: h.JobErrorHook(ctx)},
//	})
//	err := s.Register(scheduler.Maintenance{
//		Buffer:        buffer,
//		FlushSchedule: "@every 30s",
//		Cache:         mem,
//		PurgeInterval: time.Minute,
//	})
//
// Specs accept an optional seconds field, so both "*/5 * * * *" and
// "0 */5 * * * *" work.
package scheduler

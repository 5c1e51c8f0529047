package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config defines retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration
	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier
	Multiplier float64
	// OnRetry is called before each backoff wait for observability
	OnRetry func(operationID string, attempt int, err error, delay time.Duration)
	// After creates a timer channel (for testing, defaults to time.After)
	After func(d time.Duration) <-chan time.Time
}

// DefaultConfig returns the portal defaults: 3 retries waiting 1s, 2s and 4s.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

// Normalize validates and normalizes the configuration
func (c *Config) Normalize() error {
	if c.MaxRetries < 0 {
		return errors.New("retry: MaxRetries cannot be negative")
	}
	if c.BaseDelay <= 0 {
		return errors.New("retry: BaseDelay must be positive")
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.BaseDelay > c.MaxDelay {
		return errors.New("retry: BaseDelay cannot be greater than MaxDelay")
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	if c.After == nil {
		c.After = time.After
	}
	return nil
}

// Func is an operation that can be retried
type Func func(ctx context.Context) error

// IsRetryableFunc determines if an error should trigger a retry
type IsRetryableFunc func(err error) bool

// Never is an IsRetryableFunc that disables retries.
func Never(error) bool { return false }

// RetriesExceededError is returned when the retry budget is exhausted
type RetriesExceededError struct {
	LastError   error
	OperationID string
	Attempts    int
}

func (e *RetriesExceededError) Error() string {
	return fmt.Sprintf("retry: operation %s failed after %d attempts: %v", e.OperationID, e.Attempts, e.LastError)
}

func (e *RetriesExceededError) Unwrap() error {
	return e.LastError
}

// Options scope one Execute call.
type Options struct {
	// OperationID keys the retry budget. Calls sharing an id share the
	// budget; an empty id gets a fresh one.
	OperationID string
	// MaxRetries overrides Config.MaxRetries when set; zero means a single
	// attempt and negative values count as zero
	MaxRetries *int
	// IsRetryable decides whether a failure is retried; nil never retries
	IsRetryable IsRetryableFunc
}

// Retries returns a pointer to n, for Options.MaxRetries.
func Retries(n int) *int { return &n }

// Coordinator runs operations with exponential backoff and tracks the
// number of retries spent per operation id. An entry exists only while an
// operation with that id is failing and is removed on every exit path.
type Coordinator struct {
	cfg Config

	mu       sync.Mutex
	attempts map[string]int
}

// NewCoordinator creates a Coordinator with the given configuration.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &Coordinator{cfg: cfg, attempts: make(map[string]int)}, nil
}

// Execute invokes fn until it succeeds, fails with a non-retryable error,
// the retry budget of the operation is spent or ctx is done.
//
// On exhaustion the last error is returned wrapped in *RetriesExceededError;
// non-retryable errors and context errors are returned unchanged.
func (c *Coordinator) Execute(ctx context.Context, opts Options, fn Func) error {
	id := opts.OperationID
	if id == "" {
		id = uuid.NewString()
	}
	maxRetries := c.cfg.MaxRetries
	if opts.MaxRetries != nil {
		maxRetries = max(*opts.MaxRetries, 0)
	}
	isRetryable := opts.IsRetryable
	if isRetryable == nil {
		isRetryable = Never
	}
	defer c.forget(id)

	var lastErr error
	calls := 0
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		calls++
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		spent, ok := c.reserve(id, maxRetries)
		if !ok {
			break
		}

		delay := c.cfg.calculateDelay(spent)
		if c.cfg.OnRetry != nil {
			c.cfg.OnRetry(id, spent+1, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.cfg.After(delay):
		}
	}

	return &RetriesExceededError{
		LastError:   lastErr,
		OperationID: id,
		Attempts:    calls,
	}
}

// Attempts returns the retries currently spent for an operation id.
func (c *Coordinator) Attempts(operationID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[operationID]
}

// Pending returns the number of operations currently holding retry state.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attempts)
}

// reserve takes one retry from the budget of id. It returns the number of
// retries spent before this one and false once the budget is gone.
func (c *Coordinator) reserve(id string, maxRetries int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	spent := c.attempts[id]
	if spent >= maxRetries {
		return spent, false
	}
	c.attempts[id] = spent + 1
	return spent, true
}

func (c *Coordinator) forget(id string) {
	c.mu.Lock()
	delete(c.attempts, id)
	c.mu.Unlock()
}

// calculateDelay returns BaseDelay * Multiplier^spent capped at MaxDelay.
func (c Config) calculateDelay(spent int) time.Duration {
	delay := c.BaseDelay
	for i := 0; i < spent; i++ {
		// Check for overflow before multiplication
		if delay > time.Duration(float64(c.MaxDelay)/c.Multiplier) {
			return c.MaxDelay
		}
		delay = time.Duration(float64(delay) * c.Multiplier)
	}
	if delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// Do runs fn with a one-off coordinator.
func Do(ctx context.Context, config Config, fn Func, isRetryable IsRetryableFunc) error {
	c, err := NewCoordinator(config)
	if err != nil {
		return err
	}
	return c.Execute(ctx, Options{IsRetryable: isRetryable}, fn)
}

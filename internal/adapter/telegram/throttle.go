package telegram

import (
	"sync"
	"time"
)

// Throttle lets one event per key through per window.
type Throttle struct {
	mu     sync.Mutex
	last   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

// NewThrottle creates a throttle with given window.
func NewThrottle(window time.Duration) *Throttle {
	return &Throttle{last: make(map[string]time.Time), window: window, now: time.Now}
}

// Allow returns false if key was seen within the window.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if ts, ok := t.last[key]; ok && now.Sub(ts) < t.window {
		return false
	}
	t.last[key] = now
	for k, ts := range t.last {
		if now.Sub(ts) >= t.window {
			delete(t.last, k)
		}
	}
	return true
}

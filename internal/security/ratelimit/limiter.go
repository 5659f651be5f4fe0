// Package ratelimit implements a fixed-window request cap keyed by client
// address, applied across the whole API surface.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxReqs int
	window  time.Duration
	cleanup *time.Ticker
	done    chan struct{}
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewLimiter(maxRequests int, windowSize time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		maxReqs: maxRequests,
		window:  windowSize,
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go l.cleanupStaleWindows()
	return l
}

// Allow records a request for the key and reports whether it fits inside the
// current window. The counter resets when the window elapses; requests that
// exceed the cap do not extend the window.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= l.maxReqs {
		return false
	}
	w.count++
	return true
}

func (l *Limiter) cleanupStaleWindows() {
	for {
		select {
		case <-l.cleanup.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.Sub(w.start) >= l.window {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) Stop() {
	l.cleanup.Stop()
	close(l.done)
}

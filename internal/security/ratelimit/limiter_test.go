package ratelimit

import (
	"testing"
	"time"
)

// newTestLimiter returns a limiter with a controllable clock and no cleanup
// goroutine interference.
func newTestLimiter(maxReqs int, windowSize time.Duration) (*Limiter, *time.Time) {
	l := NewLimiter(maxReqs, windowSize)
	current := time.Date(2025, 6, 19, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestAllowWithinWindow(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request over the cap should be blocked")
	}
}

func TestWindowResets(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)
	defer l.Stop()

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.1")
	if l.Allow("10.0.0.1") {
		t.Fatal("expected block at cap")
	}

	*clock = clock.Add(time.Minute)
	if !l.Allow("10.0.0.1") {
		t.Fatal("expected allow after window elapsed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatal("first client should be allowed")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("second client should have its own window")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("first client should now be blocked")
	}
}

func TestEmptyKeyAlwaysAllowed(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if !l.Allow("") {
			t.Fatal("empty key should never be limited")
		}
	}
}

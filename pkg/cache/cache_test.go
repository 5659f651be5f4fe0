package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New()
	c.Set("pumps", []string{"P1", "P2"}, time.Minute)

	v, ok := c.Get("pumps")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(v.([]string)) != 2 {
		t.Fatalf("unexpected value: %v", v)
	}
}

func TestExpiry(t *testing.T) {
	c := New()
	c.Set("k", "v", -time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New()
	c.Set("pump:1:current", 1, time.Minute)
	c.Set("pump:2:current", 2, time.Minute)
	c.Set("pumps", 3, time.Minute)

	c.Invalidate("pump:")

	if _, ok := c.Get("pump:1:current"); ok {
		t.Fatal("expected pump:1 entry to be invalidated")
	}
	if _, ok := c.Get("pump:2:current"); ok {
		t.Fatal("expected pump:2 entry to be invalidated")
	}
	if _, ok := c.Get("pumps"); !ok {
		t.Fatal("expected unrelated key to survive")
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected cache to be empty after clear")
	}
}

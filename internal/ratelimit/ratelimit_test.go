package ratelimit

import (
	"testing"
	"time"
)

func TestNew_BurstCoercion_AndReuse(t *testing.T) {
	k := New(2.0, 0)
	if k.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", k.burst)
	}
	lim := k.limiter("k1")
	if got := k.limiter("k1"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestAllow_PerKeyBuckets(t *testing.T) {
	k := New(0, 2)
	if !k.Allow("a") || !k.Allow("a") {
		t.Fatalf("burst of 2 should allow two events")
	}
	if k.Allow("a") {
		t.Fatalf("third event should be limited")
	}
	if !k.Allow("b") {
		t.Fatalf("other keys must have their own bucket")
	}
}

func TestLimiter_GC(t *testing.T) {
	k := New(1.0, 1)
	k.ttl = time.Nanosecond
	k.gcEvery = 1

	_ = k.limiter("old")
	time.Sleep(time.Millisecond)
	_ = k.limiter("new")

	if k.Len() != 1 {
		t.Fatalf("expected stale bucket to be evicted, have %d", k.Len())
	}
}

package echoapi

import (
	"testing"
	"time"
)

func Test_ipRateLimiter_allow(t *testing.T) {
	l := newIPRateLimiter(0.001, 2)

	for i, want := range []bool{true, true, false} {
		if got := l.allow("10.0.0.1"); got != want {
			t.Errorf("request %d: allow() = %v; want %v", i, got, want)
		}
	}
	if !l.allow("10.0.0.2") {
		t.Error("buckets are per IP")
	}
}

func Test_ipRateLimiter_unlimited(t *testing.T) {
	l := newIPRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatalf("request %d rejected", i)
		}
	}
}

func Test_ipRateLimiter_sweep(t *testing.T) {
	l := newIPRateLimiter(1, 1)
	l.allow("10.0.0.1")
	l.buckets["10.0.0.1"].seen = time.Now().Add(-2 * bucketTTL)
	l.lastSweep = time.Now().Add(-2 * time.Minute)

	l.allow("10.0.0.2")
	if _, ok := l.buckets["10.0.0.1"]; ok {
		t.Error("idle bucket was not dropped")
	}
	if _, ok := l.buckets["10.0.0.2"]; !ok {
		t.Error("active bucket was dropped")
	}
}

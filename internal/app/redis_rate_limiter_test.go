package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRateLimiter(client, "test:rate_limit:"), mr
}

func TestRedisRateLimiter_CountsWithinWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, retryAfter, err := limiter.ConsumeRateLimit(ctx, "forgot_pin_start", "10.0.0.1", 2, time.Minute)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if count != i {
			t.Fatalf("expected count=%d, got %d", i, count)
		}
		if retryAfter < 1 || retryAfter > 60 {
			t.Fatalf("expected retry-after within the window, got %d", retryAfter)
		}
	}

	if !mr.Exists("test:rate_limit:forgot_pin_start:10.0.0.1") {
		t.Fatal("expected key with trimmed prefix")
	}

	mr.FastForward(61 * time.Second)
	count, _, err := limiter.ConsumeRateLimit(ctx, "forgot_pin_start", "10.0.0.1", 2, time.Minute)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected window reset, got count=%d", count)
	}
}

func TestRedisRateLimiter_SubjectsAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	limiter.ConsumeRateLimit(ctx, "forgot_pin_reset", "10.0.0.1", 5, time.Minute)
	count, _, err := limiter.ConsumeRateLimit(ctx, "forgot_pin_reset", "10.0.0.2", 5, time.Minute)
	if err != nil || count != 1 {
		t.Fatalf("expected independent counter, got count=%d err=%v", count, err)
	}
}

func TestRedisRateLimiter_DisabledInputs(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	cases := []struct {
		scope, subject string
		limit          int
	}{
		{scope: "s", subject: "ip", limit: 0},
		{scope: " ", subject: "ip", limit: 5},
		{scope: "s", subject: "", limit: 5},
	}
	for _, c := range cases {
		count, retryAfter, err := limiter.ConsumeRateLimit(ctx, c.scope, c.subject, c.limit, time.Minute)
		if err != nil || count != 0 || retryAfter != 0 {
			t.Fatalf("expected limiter bypass for %+v, got count=%d retry=%d err=%v", c, count, retryAfter, err)
		}
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys written, got %v", mr.Keys())
	}

	var nilLimiter *RedisRateLimiter
	if count, _, err := nilLimiter.ConsumeRateLimit(ctx, "s", "ip", 5, time.Minute); err != nil || count != 0 {
		t.Fatalf("expected nil limiter to bypass, got count=%d err=%v", count, err)
	}
}

func TestRedisRateLimiter_RedisDownReturnsError(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	mr.Close()

	if _, _, err := limiter.ConsumeRateLimit(context.Background(), "s", "ip", 5, time.Minute); err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}

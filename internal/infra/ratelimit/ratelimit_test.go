package ratelimit_test

import (
	"context"
	"testing"

	"github.com/carcashpro/carcash-bfa-go/internal/infra/ratelimit"
)

func TestLocal_BurstThenReject(t *testing.T) {
	l := ratelimit.NewLocal(ratelimit.Policy{PerMinute: 1, Burst: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be within burst", i+1)
		}
	}

	ok, retryAfter, _ := l.Allow(ctx, "u1")
	if ok {
		t.Fatal("expected third request to be rejected")
	}
	if retryAfter <= 0 {
		t.Errorf("expected a positive retry hint, got %s", retryAfter)
	}
}

func TestLocal_KeysAreIndependent(t *testing.T) {
	l := ratelimit.NewLocal(ratelimit.Policy{PerMinute: 1, Burst: 1})
	ctx := context.Background()

	if ok, _, _ := l.Allow(ctx, "u1"); !ok {
		t.Fatal("u1 first request should pass")
	}
	if ok, _, _ := l.Allow(ctx, "u2"); !ok {
		t.Fatal("u2 must not share u1's bucket")
	}
}

func TestLocal_RejectionDoesNotConsume(t *testing.T) {
	l := ratelimit.NewLocal(ratelimit.Policy{PerMinute: 60, Burst: 1})
	ctx := context.Background()

	_, _, _ = l.Allow(ctx, "u1")
	_, first, _ := l.Allow(ctx, "u1")
	_, second, _ := l.Allow(ctx, "u1")

	if second > first {
		t.Errorf("rejected requests should not push the retry hint out: %s then %s", first, second)
	}
}

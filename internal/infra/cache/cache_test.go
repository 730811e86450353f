package cache_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[*domain.Account](5 * time.Minute)
	defer c.Close()

	acct := &domain.Account{ID: "u1", Email: "rep@example.com"}
	c.Set("u1", acct)

	got, ok := c.Get("u1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if got.Email != "rep@example.com" {
		t.Errorf("expected rep@example.com, got %q", got.Email)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_CleanupEvicts(t *testing.T) {
	c := cache.New[string](20 * time.Millisecond)
	defer c.Close()

	c.Set("a", "1")
	c.Set("b", "2")

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := c.Len(); n != 0 {
		t.Fatalf("expected expired entries to be evicted, %d left", n)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := cache.New[string](time.Minute)
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
}

func TestRedis_UnreachableIsMiss(t *testing.T) {
	client := cache.NewRedisClient("127.0.0.1:1", "", 0)
	defer client.Close()

	c := cache.NewRedis[string](client, "test", time.Minute, zap.NewNop())
	c.Set("k", "v")

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
	c.Delete("k")
}

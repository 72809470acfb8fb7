package explainer

import (
	"context"
	"testing"
	"time"

	"trustcart/models"
)

func TestCacheKeyDependsOnModel(t *testing.T) {
	a := CacheKey("iPhone 15", 199, models.RiskHigh, "fast")
	b := CacheKey("iPhone 15", 199, models.RiskHigh, "strong")
	if a == b {
		t.Fatal("keys for different models must differ")
	}
	if a != CacheKey("  IPHONE 15 ", 199.001, models.RiskHigh, "fast") {
		t.Error("key should ignore case, surrounding space and sub-cent price noise")
	}
	if len(a) != 32 {
		t.Errorf("key length: got %d, want 32", len(a))
	}
}

func TestMemoryCacheGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Hour)
	c.Set(ctx, "k", &models.ExplanationResult{ScamProbability: 0.5, RedFlags: []string{"a"}})

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	got.RedFlags[0] = "mutated"

	again, _ := c.Get(ctx, "k")
	if again.RedFlags[0] != "a" {
		t.Errorf("cached value was mutated through a returned result")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, 0)
	c.Set(ctx, "a", &models.ExplanationResult{})
	c.Set(ctx, "b", &models.ExplanationResult{})
	c.Get(ctx, "a")
	c.Set(ctx, "c", &models.ExplanationResult{})

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("a should still be cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len: got %d, want 2", c.Len())
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "old", &models.ExplanationResult{})
	now = now.Add(30 * time.Second)
	c.Set(ctx, "new", &models.ExplanationResult{})
	now = now.Add(45 * time.Second)

	if _, ok := c.Get(ctx, "old"); ok {
		t.Error("old should have expired")
	}
	if removed := c.Prune(); removed != 0 {
		t.Errorf("Prune: got %d, want 0 (old already dropped by Get)", removed)
	}
	now = now.Add(time.Minute)
	if removed := c.Prune(); removed != 1 {
		t.Errorf("Prune: got %d, want 1", removed)
	}
	if c.Len() != 0 {
		t.Errorf("Len: got %d, want 0", c.Len())
	}
}

func TestMemoryCacheJanitor(t *testing.T) {
	c := NewMemoryCache(10, time.Minute)
	if _, err := c.StartJanitor("not a schedule", nil); err == nil {
		t.Error("expected error for invalid cron spec")
	}
	stop, err := c.StartJanitor("@every 1h", nil)
	if err != nil {
		t.Fatalf("StartJanitor: %v", err)
	}
	stop()
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisCache(ctx, "127.0.0.1:1", "", 0, time.Minute, nil); err == nil {
		t.Error("expected ping error for unreachable redis")
	}
}

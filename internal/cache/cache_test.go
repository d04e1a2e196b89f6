package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/fingerprint"
	"github.com/ppiankov/credence/internal/model"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("hello")
	if err := c.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'j'

	got, found := c.Get(ctx, "k")
	if !found || string(got) != "hello" {
		t.Errorf("Expected stored copy 'hello', got %q (found=%v)", got, found)
	}

	_ = c.Delete(ctx, "k")
	if _, found := c.Get(ctx, "k"); found {
		t.Error("Expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	_ = c.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get(ctx, "k"); found {
		t.Error("Expected entry to expire")
	}
}

func TestDiskCache(t *testing.T) {
	ctx := context.Background()
	c := NewDiskCache(t.TempDir(), time.Hour)

	key := "credence:v1:abc/../def"
	if err := c.Set(ctx, key, []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found := c.Get(ctx, key)
	if !found || string(got) != "payload" {
		t.Errorf("Expected 'payload', got %q (found=%v)", got, found)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
	if _, found := c.Get(ctx, key); found {
		t.Error("Expected miss after delete")
	}
}

func TestDiskCache_Expired(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	_ = c.Set(ctx, "k", []byte("v"), -time.Second)
	if _, found := c.Get(ctx, "k"); found {
		t.Error("Expected expired entry to miss")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected expired file removed, found %d files", len(entries))
	}
}

func TestLayeredCache_Promotes(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryCache(time.Minute, time.Minute)
	back := NewDiskCache(t.TempDir(), time.Hour)
	layered := NewLayeredCache(front, back)

	_ = back.Set(ctx, "k", []byte("from disk"), 0)

	got, found := layered.Get(ctx, "k")
	if !found || string(got) != "from disk" {
		t.Fatalf("Expected back-layer hit, got %q", got)
	}
	if _, found := front.Get(ctx, "k"); !found {
		t.Error("Expected value promoted to the front layer")
	}

	_ = layered.Set(ctx, "k2", []byte("both"), 0)
	if _, found := back.Get(ctx, "k2"); !found {
		t.Error("Expected write-through to the back layer")
	}
}

func TestResultCache_OnlyCompleted(t *testing.T) {
	ctx := context.Background()
	results := NewResultCache(NewMemoryCache(time.Minute, time.Minute), time.Hour)

	fp := fingerprint.Compute("Some article text")
	result := model.NewValidationResult("id-1", model.Article{Fingerprint: fp}, time.Now())
	result.Status = model.StatusFailed

	if err := results.Put(ctx, result); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, found := results.Get(ctx, fp); found {
		t.Error("Expected failed result not to be cached")
	}

	result.Status = model.StatusCompleted
	result.CredibilityScore = 0.8
	_ = results.Put(ctx, result)

	cached, found := results.Get(ctx, fp)
	if !found {
		t.Fatal("Expected completed result to be cached")
	}
	if cached.ID != "id-1" || cached.CredibilityScore != 0.8 {
		t.Errorf("Unexpected cached result: %+v", cached)
	}

	_ = results.Invalidate(ctx, fp)
	if _, found := results.Get(ctx, fp); found {
		t.Error("Expected miss after invalidate")
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr, "", 0, fingerprint.KeyPrefix, time.Minute)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer c.Close()

	key := fingerprint.CacheKey("redis-test")
	if err := c.Set(ctx, key, []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, found := c.Get(ctx, key); !found || string(got) != "v" {
		t.Errorf("Expected 'v', got %q", got)
	}
	if err := c.Clear(ctx); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	if _, found := c.Get(ctx, key); found {
		t.Error("Expected miss after clear")
	}
}

package cache

import (
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(0)

	c.Set("issue:3", []byte(`{"number":3}`), time.Minute)

	val, found := c.Get("issue:3")
	if !found {
		t.Fatal("expected value to be found")
	}
	if string(val) != `{"number":3}` {
		t.Errorf("got %q", val)
	}

	stats := c.Stats()
	if stats.Sets != 1 || stats.Hits != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(0)

	if _, found := c.Get("absent"); found {
		t.Error("expected miss")
	}
	if got := c.Stats().Misses; got != 1 {
		t.Errorf("misses = %d, want 1", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(0)

	c.Set("short", []byte("x"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("expected entry to be expired")
	}
}

func TestMemoryCacheJanitorEvicts(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond).(*memoryCache)

	c.Set("short", []byte("x"), time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	c.mu.RLock()
	_, present := c.entries["short"]
	c.mu.RUnlock()
	if present {
		t.Error("janitor should have evicted the expired entry")
	}
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewMemoryCache(0)

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Error("expected a to be deleted")
	}

	c.Clear()
	if got := c.Stats().CurrentSize; got != 0 {
		t.Errorf("size after clear = %d", got)
	}
}

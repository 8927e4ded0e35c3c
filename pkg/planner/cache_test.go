package planner

import (
	"testing"
	"time"
)

func TestCacheKeyFullWhenNoChangedFiles(t *testing.T) {
	if got := cacheKey(nil); got != fullCacheKey {
		t.Errorf("got %q, want %q", got, fullCacheKey)
	}
	if got := cacheKey(map[string]bool{}); got != fullCacheKey {
		t.Errorf("got %q, want %q", got, fullCacheKey)
	}
}

func TestCacheKeyStableRegardlessOfMapOrder(t *testing.T) {
	a := cacheKey(map[string]bool{"/src/a.lua": true, "/src/b.lua": true})
	b := cacheKey(map[string]bool{"/src/b.lua": true, "/src/a.lua": true})
	if a != b {
		t.Errorf("got %q and %q, want equal", a, b)
	}
}

func TestCacheKeyDiffersByContent(t *testing.T) {
	a := cacheKey(map[string]bool{"/src/a.lua": true})
	b := cacheKey(map[string]bool{"/src/b.lua": true})
	if a == b {
		t.Errorf("expected different keys, got %q for both", a)
	}
}

func TestCacheGetPutAndInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	plan := SyncPlan{IsValid: true}

	if _, ok := c.Get("full"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("full", plan)
	if got, ok := c.Get("full"); !ok || !got.IsValid {
		t.Fatalf("expected cached hit, got %+v, %v", got, ok)
	}

	c.Invalidate()
	if _, ok := c.Get("full"); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestCacheExpiresByTTL(t *testing.T) {
	c := NewCache(time.Millisecond)
	c.Put("full", SyncPlan{IsValid: true})

	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("full"); ok {
		t.Fatal("expected expiry after TTL elapsed")
	}
}

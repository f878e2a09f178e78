// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestMemoryCache(maxSize int) (*MemoryCache, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute, MaxSize: maxSize})
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCacheGetSet(t *testing.T) {
	c, _ := newTestMemoryCache(0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get(missing) error = %v, want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	// returned slice must not alias the stored value
	got[0] = 'x'
	again, _ := c.Get(ctx, "k")
	if string(again) != "v" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c, now := newTestMemoryCache(0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("1"), time.Second)
	_ = c.Set(ctx, "default", []byte("2"), 0)

	*now = now.Add(2 * time.Second)
	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired entry: error = %v, want ErrCacheMiss", err)
	}
	if _, err := c.Get(ctx, "default"); err != nil {
		t.Errorf("default ttl entry: unexpected error %v", err)
	}

	*now = now.Add(time.Minute)
	c.removeExpired()
	if n := c.Stats().Items; n != 0 {
		t.Errorf("Items after cleanup = %d, want 0", n)
	}
}

func TestMemoryCacheEvictsSoonestExpiry(t *testing.T) {
	c, _ := newTestMemoryCache(2)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "long", []byte("a"), time.Hour)
	_ = c.Set(ctx, "soon", []byte("b"), time.Second)
	_ = c.Set(ctx, "new", []byte("c"), time.Hour)

	if _, err := c.Get(ctx, "soon"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("soon should have been evicted, err = %v", err)
	}
	for _, k := range []string{"long", "new"} {
		if _, err := c.Get(ctx, k); err != nil {
			t.Errorf("Get(%q) error = %v", k, err)
		}
	}
}

func TestMemoryCacheDeleteByPrefix(t *testing.T) {
	c, _ := newTestMemoryCache(0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "catalog:post:1", []byte("a"), 0)
	_ = c.Set(ctx, "catalog:post:2", []byte("b"), 0)
	_ = c.Set(ctx, "catalog:course:1", []byte("c"), 0)

	if err := c.DeleteByPrefix(ctx, "catalog:post:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if n := c.Stats().Items; n != 1 {
		t.Errorf("Items = %d, want 1", n)
	}
	if _, err := c.Get(ctx, "catalog:course:1"); err != nil {
		t.Errorf("unrelated key removed: %v", err)
	}

	_ = c.Clear(ctx)
	if n := c.Stats().Items; n != 0 {
		t.Errorf("Items after Clear = %d, want 0", n)
	}
}

func TestMemoryCacheClosed(t *testing.T) {
	c, _ := newTestMemoryCache(0)
	_ = c.Close()
	_ = c.Close()

	ctx := context.Background()
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after Close error = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after Close error = %v, want ErrCacheClosed", err)
	}
}

func TestMemoryCacheStats(t *testing.T) {
	c, _ := newTestMemoryCache(0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "nope")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Sets != 1 {
		t.Errorf("Stats = %+v, want hits=2 misses=1 sets=1", s)
	}
	if s.HitRate < 66 || s.HitRate > 67 {
		t.Errorf("HitRate = %f, want ~66.7", s.HitRate)
	}
}

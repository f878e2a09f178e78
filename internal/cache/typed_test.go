// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type listing struct {
	Titles []string `json:"titles"`
	Total  int64    `json:"total"`
}

func TestTypedCacheGetOrLoad(t *testing.T) {
	mc := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = mc.Close() }()
	tc := NewTypedCache[listing](mc, 0)
	ctx := context.Background()

	calls := 0
	load := func() (listing, error) {
		calls++
		return listing{Titles: []string{"a", "b"}, Total: 2}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := tc.GetOrLoad(ctx, "catalog:post", load)
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
		if got.Total != 2 || len(got.Titles) != 2 {
			t.Errorf("GetOrLoad = %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	if err := tc.InvalidatePrefix(ctx, "catalog:"); err != nil {
		t.Fatalf("InvalidatePrefix: %v", err)
	}
	_, _ = tc.GetOrLoad(ctx, "catalog:post", load)
	if calls != 2 {
		t.Errorf("loader called %d times after invalidation, want 2", calls)
	}
}

func TestTypedCacheLoadError(t *testing.T) {
	mc := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = mc.Close() }()
	tc := NewTypedCache[listing](mc, 0)

	boom := errors.New("boom")
	_, err := tc.GetOrLoad(context.Background(), "k", func() (listing, error) { return listing{}, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if _, ok := tc.Get(context.Background(), "k"); ok {
		t.Error("failed load must not be cached")
	}
}

func TestTypedCacheCorruptEntry(t *testing.T) {
	mc := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = mc.Close() }()
	_ = mc.Set(context.Background(), "k", []byte("{not json"), 0)

	tc := NewTypedCache[listing](mc, 0)
	if _, ok := tc.Get(context.Background(), "k"); ok {
		t.Error("corrupt entry should read as a miss")
	}
}

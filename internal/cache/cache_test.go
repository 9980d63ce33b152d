package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"infobeamer-cms/internal/cache"
	"infobeamer-cms/internal/config"
)

func TestMemoryExpiresEntries(t *testing.T) {
	now := time.Unix(1000, 0)
	store := cache.NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	if _, err := store.Get(ctx, "ibh:asset/list"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected miss on empty store, got %v", err)
	}
	if err := store.Set(ctx, "ibh:asset/list", []byte(`{"assets":[]}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "ibh:asset/list")
	if err != nil || string(got) != `{"assets":[]}` {
		t.Fatalf("unexpected hit: %q, %v", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := store.Get(ctx, "ibh:asset/list"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected expiry after ttl, got %v", err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()
	value := []byte("abc")
	_ = store.Set(ctx, "k", value, 0)
	value[0] = 'x'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got[1] = 'y'
	again, _ := store.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value was mutated: %q", again)
	}
}

func TestOpenWithoutRedisUsesMemory(t *testing.T) {
	cfg := config.Default()
	store, err := cache.Open(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*cache.Memory); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"
)

type cachedIndex struct {
	Titles []string `json:"titles"`
}

func newTestCache(t *testing.T) *LayeredCache {
	t.Helper()
	return NewLayeredCache(newTestAppContext(t, nil).Config)
}

func TestLayeredCachePutFetch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := newTestCache(t)
	if err := cache.Put(ctx, "news:index:ASC", cachedIndex{Titles: []string{"a", "b"}}, time.Minute); err != nil {
		t.Fatalf("error putting: %v", err)
	}
	var got cachedIndex
	found, err := cache.Fetch(ctx, "news:index:ASC", &got)
	if err != nil || !found || len(got.Titles) != 2 || got.Titles[1] != "b" {
		t.Errorf("got found=%v value=%+v err=%v", found, got, err)
	}

	found, err = cache.Fetch(ctx, "news:index:DESC", &got)
	if err != nil || found {
		t.Errorf("missing key: got found=%v err=%v", found, err)
	}
}

func TestLayeredCacheSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := newTestAppContext(t, nil).Config
	if err := NewLayeredCache(cfg).Put(ctx, "news:index:ASC", cachedIndex{Titles: []string{"a"}}, time.Minute); err != nil {
		t.Fatalf("error putting: %v", err)
	}

	restarted := NewLayeredCache(cfg)
	var got cachedIndex
	if found, err := restarted.Fetch(ctx, "news:index:ASC", &got); err != nil || !found {
		t.Fatalf("got found=%v err=%v", found, err)
	}
	if _, ok := restarted.memory.Get("news:index:ASC"); !ok {
		t.Errorf("table hit was not copied into memory")
	}
}

func TestLayeredCacheExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := newTestAppContext(t, nil).Config
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewLayeredCache(cfg)
	cache.store.now = func() time.Time { return start }
	if err := cache.Put(ctx, "k", "v", 2*time.Minute); err != nil {
		t.Fatalf("error putting: %v", err)
	}

	var tests = []struct {
		name  string
		at    time.Duration
		found bool
	}{
		{"before expiry", time.Minute, true},
		{"after expiry", 3 * time.Minute, false},
	}
	for _, tt := range tests {
		// a fresh cache has an empty memory layer, so the table decides
		c := NewLayeredCache(cfg)
		c.store.now = func() time.Time { return start.Add(tt.at) }
		var v string
		if found, err := c.Fetch(ctx, "k", &v); err != nil || found != tt.found {
			t.Errorf("%v: got found=%v err=%v", tt.name, found, err)
		}
	}

	cache.store.now = func() time.Time { return start.Add(3 * time.Minute) }
	if err := cache.Purge(ctx); err != nil {
		t.Fatalf("error purging: %v", err)
	}
	cache.store.now = func() time.Time { return start }
	if _, _, found, _ := cache.store.get(ctx, "k"); found {
		t.Errorf("expired key survived Purge")
	}
}

func TestLayeredCacheInvalidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := newTestCache(t)
	for _, key := range []string{"news:index:ASC", "news:index:DESC", "claims:1"} {
		if err := cache.Put(ctx, key, key, time.Minute); err != nil {
			t.Fatalf("error putting %v: %v", key, err)
		}
	}

	if err := cache.Invalidate(ctx, "news:"); err != nil {
		t.Fatalf("error invalidating: %v", err)
	}
	for key, want := range map[string]bool{"news:index:ASC": false, "news:index:DESC": false, "claims:1": true} {
		var v string
		if found, _ := cache.Fetch(ctx, key, &v); found != want {
			t.Errorf("%v: got found=%v, want %v", key, found, want)
		}
		if _, _, found, _ := cache.store.get(ctx, key); found != want {
			t.Errorf("%v: table has found=%v, want %v", key, found, want)
		}
	}
}

func TestRemember(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := newTestCache(t)
	loads := 0
	load := func(ctx context.Context) (cachedIndex, error) {
		loads++
		return cachedIndex{Titles: []string{"concert"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Remember(ctx, cache, "news:index:ASC", time.Minute, load)
		if err != nil || len(got.Titles) != 1 {
			t.Fatalf("got %+v %v", got, err)
		}
	}
	if loads != 1 {
		t.Errorf("got %v loads, want 1", loads)
	}

	errLoad := errors.New("feed down")
	_, err := Remember(ctx, cache, "news:index:DESC", time.Minute, func(ctx context.Context) (cachedIndex, error) {
		return cachedIndex{}, errLoad
	})
	if !errors.Is(err, errLoad) {
		t.Errorf("got %v, want the load error", err)
	}
	var v cachedIndex
	if found, _ := cache.Fetch(ctx, "news:index:DESC", &v); found {
		t.Errorf("a failed load was cached")
	}
}

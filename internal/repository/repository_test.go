package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bjarke-xyz/fmh/internal/config"
	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/repository/db"
	"github.com/bjarke-xyz/fmh/pkg/flow"
)

func newTestAppContext(t *testing.T, source core.NewsSource) *core.AppContext {
	t.Helper()
	cfg := &config.Config{
		DbConnStr:         filepath.Join(t.TempDir(), "fmh.db"),
		NewsFeedCreatorId: 1,
	}
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("error opening db: %v", err)
	}
	t.Cleanup(func() {
		db.Close(cfg)
	})
	if err := db.Migrate("up", conn.DB); err != nil {
		t.Fatalf("error migrating: %v", err)
	}
	return &core.AppContext{
		Config: cfg,
		Infra:  &core.AppInfra{},
		Deps:   &core.AppDeps{NewsSource: source},
	}
}

// collect feeds every value of f into the returned channel until the test ends.
func collect[T any](t *testing.T, f flow.Flow[T]) <-chan T {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan T)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Collect(ctx, func(v T) error {
			select {
			case ch <- v:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ch
}

func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		var zero T
		t.Fatalf("timed out waiting for value")
		return zero
	}
}

func fixedClock(millis int64) func() time.Time {
	return func() time.Time {
		return time.UnixMilli(millis)
	}
}

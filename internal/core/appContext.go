package core

import (
	"context"
	"time"

	"github.com/bjarke-xyz/fmh/internal/config"
)

// Cache holds JSON-encodable values until their ttl runs out or their key
// prefix is invalidated.
type Cache interface {
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Fetch(ctx context.Context, key string, target any) (bool, error)
	Invalidate(ctx context.Context, prefix string) error
	Purge(ctx context.Context) error
}

type AppContext struct {
	Config *config.Config
	Infra  *AppInfra
	Deps   *AppDeps
}

type AppInfra struct {
	Cache Cache
}

type AppDeps struct {
	ClaimRepository ClaimRepository
	NewsRepository  NewsRepository
	NewsSource      NewsSource
}

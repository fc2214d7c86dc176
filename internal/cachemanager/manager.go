// Package cachemanager provides generic in-memory caches used to memoize
// parsed themes and compiled highlight configurations.
package cachemanager

import (
	"context"
	"time"
)

// NoExpiration keeps an item until it is deleted or the cache is flushed.
const NoExpiration time.Duration = -1

type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Len() int
}

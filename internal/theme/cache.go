package theme

import (
	"context"
	"strconv"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/zjrosen/hlcache/internal/cachemanager"
	"github.com/zjrosen/hlcache/internal/log"
)

// Key is the hex form of the xxh3 hash of a raw theme document.
type Key string

// KeyOf returns the cache key of a raw theme document.
func KeyOf(raw string) Key {
	return Key(strconv.FormatUint(xxh3.HashString(raw), 16))
}

// Entry keeps the raw document next to its parse so a hash collision is
// detected on lookup.
type Entry struct {
	Raw   string
	Theme *Theme
}

// Cache memoizes parsed themes for the lifetime of the process. Entries are
// never evicted.
type Cache struct {
	mu      sync.Mutex
	entries cachemanager.CacheManager[Key, Entry]
}

// NewCache creates an empty theme cache.
func NewCache() *Cache {
	return &Cache{
		entries: cachemanager.NewInMemoryCacheManager[Key, Entry](
			"themes", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval),
	}
}

// GetOrParse returns the theme for raw, parsing it on first sight.
// Byte-identical input yields the same *Theme. A document that fails to parse
// is cached as an empty theme; GetOrParse never fails.
//
// The lock covers only the lookup and the insert. Callers racing on a new
// document may parse it twice; the first insert wins and all of them get its
// pointer.
func (c *Cache) GetOrParse(ctx context.Context, raw string) *Theme {
	key := KeyOf(raw)

	if t, ok := c.lookup(ctx, key, raw); ok {
		return t
	}

	t, err := Parse(raw)
	if err != nil {
		log.Warn(log.CatTheme, "ThemeParseFailure, using empty theme", "key", key, "error", err)
		t = Empty()
	} else {
		log.Debug(log.CatTheme, "Parsed theme", "key", key, "colors", t.Len())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries.Get(ctx, key); ok && entry.Raw == raw {
		return entry.Theme
	}
	c.entries.Set(ctx, key, Entry{Raw: raw, Theme: t}, cachemanager.NoExpiration)
	return t
}

func (c *Cache) lookup(ctx context.Context, key Key, raw string) (*Theme, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(ctx, key)
	if !ok {
		return nil, false
	}
	if entry.Raw != raw {
		log.Warn(log.CatTheme, "Theme hash collision, reparsing", "key", key)
		return nil, false
	}
	return entry.Theme, true
}

// Len returns the number of memoized documents.
func (c *Cache) Len() int {
	return c.entries.Len()
}

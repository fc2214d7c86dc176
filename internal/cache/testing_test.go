package cache

import (
	"sync"
	"time"

	"github.com/zjrosen/hlcache/internal/highlight"
)

type fakeTree struct {
	language string
	source   string
}

func (f *fakeTree) Language() string { return f.language }
func (f *fakeTree) Source() string   { return f.source }

func tree(language, source string) highlight.Artifact {
	return &fakeTree{language: language, source: source}
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

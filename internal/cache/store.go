// Package cache holds the parse artifact cache and the highlight result
// cache. Both are guarded by poison-aware locks; when both are needed they
// are always taken artifact first, result second.
package cache

import (
	"time"

	"github.com/zjrosen/hlcache/internal/diff"
	"github.com/zjrosen/hlcache/internal/highlight"
	"github.com/zjrosen/hlcache/internal/log"
	"github.com/zjrosen/hlcache/internal/theme"
)

const (
	DefaultStaleAfter = 300 * time.Second
	DefaultThreshold  = 0.3
)

// Store owns every cache of the engine. Construct it once and share it.
type Store struct {
	Themes    *theme.Cache
	Artifacts *ArtifactCache
	Results   *ResultCache
}

type Option func(*options)

type options struct {
	now        func() time.Time
	staleAfter time.Duration
	threshold  float64
	differ     diff.Differ
}

// WithClock overrides the time source used for staleness.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithStaleAfter(d time.Duration) Option {
	return func(o *options) { o.staleAfter = d }
}

func WithThreshold(threshold float64) Option {
	return func(o *options) { o.threshold = threshold }
}

func WithDiffer(d diff.Differ) Option {
	return func(o *options) { o.differ = d }
}

// NewStore creates empty caches.
func NewStore(opts ...Option) *Store {
	o := options{
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
		threshold:  DefaultThreshold,
		differ:     diff.NewPositional(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		Themes:    theme.NewCache(),
		Artifacts: newArtifactCache(),
		Results: &ResultCache{
			guard:      guard{name: "result"},
			entries:    make(map[string]*Entry),
			now:        o.now,
			staleAfter: o.staleAfter,
			threshold:  o.threshold,
			differ:     o.differ,
		},
	}
}

// Commit writes the artifact and the result entry of one request. Both locks
// are held for the write, so neither cache is updated unless both can be.
func (s *Store) Commit(language string, tree highlight.Artifact, input string, ranges []highlight.Range, delta highlight.Delta) error {
	var inner error
	err := s.Artifacts.guard.do(func() {
		inner = s.Results.guard.do(func() {
			s.Artifacts.storeLocked(input, language, tree)
			s.Results.putLocked(language, tree, input, ranges, delta)
		})
	})
	if err != nil {
		return err
	}
	if inner != nil {
		return inner
	}

	log.Debug(log.CatCache, "Committed result", "language", language, "version", delta.Version, "ranges", len(ranges))
	return nil
}

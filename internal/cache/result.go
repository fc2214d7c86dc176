package cache

import (
	"time"

	"github.com/zjrosen/hlcache/internal/diff"
	"github.com/zjrosen/hlcache/internal/highlight"
)

// Entry is the last highlighting outcome for one language. Entries are
// replaced wholesale and never mutated after Put.
type Entry struct {
	Tree       highlight.Artifact
	Ranges     []highlight.Range
	Delta      highlight.Delta
	Input      string
	Version    uint64
	LastUpdate time.Time
}

// ResultCache holds one Entry per language key. The last writer wins.
type ResultCache struct {
	guard      guard
	entries    map[string]*Entry
	now        func() time.Time
	staleAfter time.Duration
	threshold  float64
	differ     diff.Differ
}

// Get returns the current entry for language, stale or not.
func (c *ResultCache) Get(language string) (*Entry, bool, error) {
	var (
		entry *Entry
		found bool
	)
	err := c.guard.do(func() {
		entry, found = c.entries[language]
	})
	if err != nil {
		return nil, false, err
	}
	return entry, found, nil
}

// Put replaces the entry for language. Version is taken from delta and
// LastUpdate is set to now.
func (c *ResultCache) Put(language string, tree highlight.Artifact, input string, ranges []highlight.Range, delta highlight.Delta) error {
	return c.guard.do(func() {
		c.putLocked(language, tree, input, ranges, delta)
	})
}

func (c *ResultCache) putLocked(language string, tree highlight.Artifact, input string, ranges []highlight.Range, delta highlight.Delta) {
	c.entries[language] = &Entry{
		Tree:       tree,
		Ranges:     ranges,
		Delta:      delta,
		Input:      input,
		Version:    delta.Version,
		LastUpdate: c.now(),
	}
}

// IsStale reports whether entry is older than the staleness window.
func (c *ResultCache) IsStale(entry *Entry) bool {
	return c.now().Sub(entry.LastUpdate) > c.staleAfter
}

// Ratio measures how far text moved away from the entry's input.
func (c *ResultCache) Ratio(entry *Entry, text string) float64 {
	return c.differ.Ratio(entry.Input, text)
}

// MatchesInput reports whether entry is fresh and text is close enough to its
// input for its ranges to be considered.
func (c *ResultCache) MatchesInput(entry *Entry, text string) bool {
	return !c.IsStale(entry) && c.Ratio(entry, text) < c.threshold
}

// Threshold returns the similarity threshold below which changes are small.
func (c *ResultCache) Threshold() float64 {
	return c.threshold
}

// Differ returns the differ used to compare inputs.
func (c *ResultCache) Differ() diff.Differ {
	return c.differ
}

// Len returns the number of languages with an entry.
func (c *ResultCache) Len() (int, error) {
	var n int
	err := c.guard.do(func() { n = len(c.entries) })
	return n, err
}

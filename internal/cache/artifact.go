package cache

import (
	"github.com/zjrosen/hlcache/internal/highlight"
	"github.com/zjrosen/hlcache/internal/log"
)

type artifactEntry struct {
	tree  highlight.Artifact
	input string
}

// ArtifactCache maps (text, language) to the artifact parsed from it. Entries
// are overwritten on store and never evicted.
type ArtifactCache struct {
	guard   guard
	entries map[uint64]artifactEntry
}

func newArtifactCache() *ArtifactCache {
	return &ArtifactCache{
		guard:   guard{name: "artifact"},
		entries: make(map[uint64]artifactEntry),
	}
}

// Lookup returns the artifact stored for exactly this text and language.
// A key match whose stored input differs is treated as a miss.
func (c *ArtifactCache) Lookup(text, language string) (highlight.Artifact, bool, error) {
	var (
		tree  highlight.Artifact
		found bool
	)
	err := c.guard.do(func() {
		tree, found = c.lookupLocked(text, language)
	})
	if err != nil {
		return nil, false, err
	}
	return tree, found, nil
}

func (c *ArtifactCache) lookupLocked(text, language string) (highlight.Artifact, bool) {
	entry, ok := c.entries[artifactKey(text, language)]
	if !ok {
		return nil, false
	}
	if entry.input != text {
		log.Warn(log.CatCache, "Artifact key collision", "language", language, "bytes", len(text))
		return nil, false
	}
	return entry.tree, true
}

// Store records tree as the artifact for (text, language), replacing any
// previous entry under the same key.
func (c *ArtifactCache) Store(text, language string, tree highlight.Artifact) error {
	return c.guard.do(func() {
		c.storeLocked(text, language, tree)
	})
}

func (c *ArtifactCache) storeLocked(text, language string, tree highlight.Artifact) {
	c.entries[artifactKey(text, language)] = artifactEntry{tree: tree, input: text}
}

// Len returns the number of stored artifacts.
func (c *ArtifactCache) Len() (int, error) {
	var n int
	err := c.guard.do(func() { n = len(c.entries) })
	return n, err
}

package engine

import (
	"github.com/zjrosen/hlcache/internal/highlight"
	"github.com/zjrosen/hlcache/internal/log"
)

// Handle pins one artifact for a caller that cannot hold Go references,
// such as a host process across a foreign boundary.
type Handle uint64

// RetainTree pins the artifact of the current result for language under a
// fresh handle. found is false when no result exists.
func (e *Engine) RetainTree(language string) (Handle, bool, error) {
	entry, found, err := e.store.Results.Get(highlight.NormalizeLanguage(language))
	if err != nil || !found {
		return 0, false, err
	}

	e.handlesMu.Lock()
	defer e.handlesMu.Unlock()

	e.nextHandle++
	e.handles[e.nextHandle] = entry.Tree
	log.Debug(log.CatCache, "Retained tree", "language", language, "handle", e.nextHandle)
	return e.nextHandle, true, nil
}

// Tree returns the artifact pinned under h.
func (e *Engine) Tree(h Handle) (highlight.Artifact, bool) {
	e.handlesMu.Lock()
	defer e.handlesMu.Unlock()

	tree, ok := e.handles[h]
	return tree, ok
}

// ReleaseTree drops the reference held by h. The caches and other handles
// are unaffected. Releasing an unknown handle reports false.
func (e *Engine) ReleaseTree(h Handle) bool {
	e.handlesMu.Lock()
	defer e.handlesMu.Unlock()

	if _, ok := e.handles[h]; !ok {
		return false
	}
	delete(e.handles, h)
	return true
}

// RetainedTrees returns the number of live handles.
func (e *Engine) RetainedTrees() int {
	e.handlesMu.Lock()
	defer e.handlesMu.Unlock()
	return len(e.handles)
}

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetainTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, found, err := f.engine.RetainTree("go")
	require.NoError(t, err)
	require.False(t, found)

	_, err = f.engine.Highlight(ctx, Request{Language: "go", Text: "first"})
	require.NoError(t, err)

	h1, found, err := f.engine.RetainTree("Go")
	require.NoError(t, err)
	require.True(t, found)
	h2, _, err := f.engine.RetainTree("go")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
	require.Equal(t, 2, f.engine.RetainedTrees())

	// A newer result does not invalidate pinned trees.
	_, err = f.engine.Highlight(ctx, Request{Language: "go", Text: "second, quite different"})
	require.NoError(t, err)

	tree, ok := f.engine.Tree(h1)
	require.True(t, ok)
	require.Equal(t, "first", tree.Source())

	require.True(t, f.engine.ReleaseTree(h1))
	require.False(t, f.engine.ReleaseTree(h1), "double release")

	_, ok = f.engine.Tree(h1)
	require.False(t, ok)
	_, ok = f.engine.Tree(h2)
	require.True(t, ok, "other holders unaffected")

	entry, found, err := f.store.Results.Get("go")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "second, quite different", entry.Tree.Source())
}

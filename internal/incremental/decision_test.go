package incremental

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/hlcache/internal/cache"
	"github.com/zjrosen/hlcache/internal/diff"
	"github.com/zjrosen/hlcache/internal/highlight"
)

type stubTree struct{ source string }

func (s stubTree) Language() string { return "go" }
func (s stubTree) Source() string   { return s.source }

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func seed(t require.TestingT, store *cache.Store, text string, version uint64, ranges []highlight.Range) {
	delta := highlight.Delta{Ranges: ranges, Names: highlight.DefaultNames, Version: version}
	require.NoError(t, store.Commit("go", stubTree{source: text}, text, ranges, delta))
}

func newFixture() (*Engine, *cache.Store, *testClock) {
	clock := &testClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := cache.NewStore(cache.WithClock(clock.Now))
	return NewEngine(store.Results), store, clock
}

func TestDecide_NoCache(t *testing.T) {
	e, _, _ := newFixture()

	d, err := e.Decide("go", "abc", highlight.DefaultNames)
	require.NoError(t, err)
	require.Equal(t, NoCache, d.State)
	require.False(t, d.Reusable())
	require.Nil(t, d.Delta)
}

func TestDecide_Stale(t *testing.T) {
	e, store, clock := newFixture()
	seed(t, store, "abcdef", 1, nil)

	clock.now = clock.now.Add(cache.DefaultStaleAfter + time.Second)

	d, err := e.Decide("go", "abcdef", highlight.DefaultNames)
	require.NoError(t, err)
	require.Equal(t, Stale, d.State)
	require.False(t, d.Reusable())
	require.NotNil(t, d.Entry)
}

// Scenario A.
func TestDecide_Identical(t *testing.T) {
	e, store, _ := newFixture()
	ranges := []highlight.Range{{Start: 0, End: 3, Category: 0}}
	seed(t, store, "abcdef", 7, ranges)

	names := []string{"keyword"}
	d, err := e.Decide("go", "abcdef", names)
	require.NoError(t, err)
	require.Equal(t, Identical, d.State)
	require.True(t, d.Reusable())
	require.Equal(t, uint64(7), d.Delta.Version)
	require.Equal(t, ranges, d.Delta.Ranges)
	require.Equal(t, names, d.Delta.Names)
	require.Equal(t, []diff.Span{{Start: 0, End: 6}}, d.Delta.ReusedRanges)
	require.Empty(t, d.Delta.ChangedRanges)
	require.NotNil(t, d.Delta.ChangedRanges)
}

// Scenario B.
func TestDecide_PartialChangeRecomputes(t *testing.T) {
	e, store, _ := newFixture()
	seed(t, store, "aaaa", 1, nil)

	d, err := e.Decide("go", "aaab", highlight.DefaultNames)
	require.NoError(t, err)
	require.Equal(t, PartialChange, d.State)
	require.False(t, d.Reusable())
	require.Nil(t, d.Delta)
	require.InDelta(t, 0.25, d.Ratio, 1e-9)
	require.Equal(t, []diff.Span{{Start: 3, End: 4}}, d.Changed)
	require.Equal(t, []diff.Span{{Start: 0, End: 3}}, diff.ReusedRanges(d.Changed, 4))
}

// Scenario C.
func TestDecide_TooDifferent(t *testing.T) {
	e, store, _ := newFixture()
	seed(t, store, "0123456789", 1, nil)

	d, err := e.Decide("go", "", highlight.DefaultNames)
	require.NoError(t, err)
	require.Equal(t, TooDifferent, d.State)
	require.Equal(t, 1.0, d.Ratio)
	require.Nil(t, d.Changed)
}

func TestDecide_ThresholdIsExclusive(t *testing.T) {
	clock := &testClock{now: time.Now()}
	store := cache.NewStore(cache.WithClock(clock.Now), cache.WithThreshold(0.25))
	e := NewEngine(store.Results)
	seed(t, store, "aaaa", 1, nil)

	d, err := e.Decide("go", "aaab", highlight.DefaultNames)
	require.NoError(t, err)
	require.Equal(t, TooDifferent, d.State)
}

// noChangeDiffer reports small ratios but never any changed span.
type noChangeDiffer struct{}

func (noChangeDiffer) Ratio(prev, next string) float64       { return 0.1 }
func (noChangeDiffer) Changes(prev, next string) []diff.Span { return nil }

func TestDecide_NoRealChange(t *testing.T) {
	clock := &testClock{now: time.Now()}
	store := cache.NewStore(cache.WithClock(clock.Now), cache.WithDiffer(noChangeDiffer{}))
	e := NewEngine(store.Results)
	ranges := []highlight.Range{{Start: 0, End: 1, Category: 2}}
	seed(t, store, "abc", 4, ranges)

	d, err := e.Decide("go", "abd", highlight.DefaultNames)
	require.NoError(t, err)
	require.Equal(t, NoRealChange, d.State)
	require.True(t, d.Reusable())
	require.Equal(t, uint64(4), d.Delta.Version)
	require.Equal(t, ranges, d.Delta.Ranges)
	require.Equal(t, []diff.Span{{Start: 0, End: 3}}, d.Delta.ReusedRanges)
}

func TestDecide_ReuseDoesNotAliasEntry(t *testing.T) {
	e, store, _ := newFixture()
	seed(t, store, "abc", 1, []highlight.Range{{Start: 0, End: 1}})

	d, err := e.Decide("go", "abc", highlight.DefaultNames)
	require.NoError(t, err)
	d.Delta.Ranges[0].End = 99

	entry, _, err := store.Results.Get("go")
	require.NoError(t, err)
	require.Equal(t, 1, entry.Ranges[0].End)
}

type failingResults struct{ Results }

func (failingResults) Get(string) (*cache.Entry, bool, error) {
	return nil, false, &cache.LockError{Lock: "result"}
}

func TestDecide_LockErrorSurfaces(t *testing.T) {
	e := NewEngine(failingResults{})

	_, err := e.Decide("go", "abc", highlight.DefaultNames)
	require.True(t, errors.Is(err, cache.ErrLockInconsistency))
}

func TestState_String(t *testing.T) {
	require.Equal(t, "identical", Identical.String())
	require.Equal(t, "partial_change", PartialChange.String())
	require.Equal(t, "unknown", State(42).String())
}

func TestSplice(t *testing.T) {
	old := []highlight.Range{
		{Start: 0, End: 2},
		{Start: 3, End: 5},
		{Start: 6, End: 9},
		{Start: 12, End: 14},
		{Start: 20, End: 22},
	}

	tests := []struct {
		name     string
		changed  []diff.Span
		expected []highlight.Range
	}{
		{name: "no changes keeps all", changed: nil, expected: old},
		{name: "change in the middle", changed: []diff.Span{{Start: 4, End: 7}}, expected: []highlight.Range{old[0], old[3], old[4]}},
		{name: "range ending at change start is kept", changed: []diff.Span{{Start: 5, End: 7}}, expected: []highlight.Range{old[0], old[1], old[3], old[4]}},
		{name: "two changes", changed: []diff.Span{{Start: 1, End: 2}, {Start: 13, End: 15}}, expected: []highlight.Range{old[1], old[2], old[4]}},
		{name: "truncation marker", changed: []diff.Span{{Start: 10, End: 10}}, expected: []highlight.Range{old[0], old[1], old[2], old[3], old[4]}},
		{name: "change covers everything", changed: []diff.Span{{Start: 0, End: 30}}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Splice(old, tt.changed))
		})
	}
}

// ============================================================================
// Property-Based Tests
// ============================================================================

// Deciding twice on the same text after a recompute reuses the result: the
// version is unchanged and nothing is reported as changed.
func TestProperty_DecideIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, store, _ := newFixture()
		text := rapid.String().Draw(t, "text")
		version := rapid.Uint64Range(1, 1000).Draw(t, "version")
		seed(t, store, text, version, nil)

		first, err := e.Decide("go", text, highlight.DefaultNames)
		require.NoError(t, err)
		second, err := e.Decide("go", text, highlight.DefaultNames)
		require.NoError(t, err)

		require.Equal(t, Identical, first.State)
		require.Equal(t, first.Delta.Version, second.Delta.Version)
		require.Equal(t, version, second.Delta.Version)
		require.Empty(t, second.Delta.ChangedRanges)
	})
}

func TestProperty_StaleEntryNeverMatches(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, store, clock := newFixture()
		prev := rapid.String().Draw(t, "prev")
		next := rapid.String().Draw(t, "next")
		seed(t, store, prev, 1, nil)

		extra := time.Duration(rapid.Int64Range(1, int64(time.Hour)).Draw(t, "extra"))
		clock.now = clock.now.Add(cache.DefaultStaleAfter + extra)

		entry, _, err := store.Results.Get("go")
		require.NoError(t, err)
		require.False(t, store.Results.MatchesInput(entry, next))

		d, err := e.Decide("go", next, highlight.DefaultNames)
		require.NoError(t, err)
		require.Equal(t, Stale, d.State)
	})
}

func TestProperty_SpliceKeepsOnlyUntouchedRanges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var old []highlight.Range
		pos := 0
		for range rapid.IntRange(0, 15).Draw(t, "ranges") {
			pos += rapid.IntRange(0, 5).Draw(t, "gap")
			end := pos + rapid.IntRange(1, 5).Draw(t, "len")
			old = append(old, highlight.Range{Start: pos, End: end})
			pos = end
		}

		var changed []diff.Span
		for range rapid.IntRange(0, 4).Draw(t, "changes") {
			start := rapid.IntRange(0, pos+5).Draw(t, "start")
			changed = append(changed, diff.Span{Start: start, End: start + rapid.IntRange(0, 8).Draw(t, "clen")})
		}
		changed = diff.MergeNearby(changed, 0)

		for _, r := range Splice(old, changed) {
			for _, c := range changed {
				overlaps := r.Start < c.End && c.Start < r.End
				require.False(t, overlaps, "kept %v overlaps change %v", r, c)
			}
		}
	})
}

// Package incremental decides whether a cached highlighting result can be
// returned for a new text or the text must be highlighted again.
package incremental

import (
	"slices"

	"github.com/zjrosen/hlcache/internal/cache"
	"github.com/zjrosen/hlcache/internal/diff"
	"github.com/zjrosen/hlcache/internal/highlight"
	"github.com/zjrosen/hlcache/internal/log"
)

// State is the outcome class of a decision.
type State int

const (
	NoCache State = iota
	Stale
	Identical
	TooDifferent
	NoRealChange
	PartialChange
)

func (s State) String() string {
	switch s {
	case NoCache:
		return "no_cache"
	case Stale:
		return "stale"
	case Identical:
		return "identical"
	case TooDifferent:
		return "too_different"
	case NoRealChange:
		return "no_real_change"
	case PartialChange:
		return "partial_change"
	default:
		return "unknown"
	}
}

// Decision is the result of Decide. Delta is set only when the cached result
// is returned as is.
type Decision struct {
	State State
	Entry *cache.Entry
	Delta *highlight.Delta
	// Ratio is the measured change against Entry.Input, when one was taken.
	Ratio float64
	// Changed holds the changed spans computed for PartialChange.
	Changed []diff.Span
}

// Reusable reports whether the cached result answers the request.
func (d Decision) Reusable() bool {
	return d.State == Identical || d.State == NoRealChange
}

// Results is the view of the result cache a decision needs.
type Results interface {
	Get(language string) (*cache.Entry, bool, error)
	IsStale(entry *cache.Entry) bool
	Ratio(entry *cache.Entry, text string) float64
	Threshold() float64
	Differ() diff.Differ
}

// Engine runs decisions against a result cache.
type Engine struct {
	results Results
}

func NewEngine(results Results) *Engine {
	return &Engine{results: results}
}

// Decide classifies text against the cached entry for language. The only
// error is a lock failure from the result cache.
func (e *Engine) Decide(language, text string, names []string) (Decision, error) {
	entry, found, err := e.results.Get(language)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return Decision{State: NoCache}, nil
	}
	if e.results.IsStale(entry) {
		log.Debug(log.CatDiff, "Cached result is stale", "language", language, "version", entry.Version)
		return Decision{State: Stale, Entry: entry}, nil
	}
	if entry.Input == text {
		return reuse(Identical, entry, text, names, 0), nil
	}

	ratio := e.results.Ratio(entry, text)
	if ratio >= e.results.Threshold() {
		log.Debug(log.CatDiff, "Texts too different for incremental update",
			"language", language, "ratio", ratio)
		return Decision{State: TooDifferent, Entry: entry, Ratio: ratio}, nil
	}

	changed := e.results.Differ().Changes(entry.Input, text)
	if len(changed) == 0 {
		return reuse(NoRealChange, entry, text, names, ratio), nil
	}

	// The splice is computed but not applied: patching ranges into a partial
	// result needs a highlighter that can run on a sub-span.
	kept := Splice(entry.Ranges, changed)
	log.Debug(log.CatDiff, "Partial change, recomputing fully",
		"language", language, "ratio", ratio, "changed", len(changed), "spliceable", len(kept))

	return Decision{State: PartialChange, Entry: entry, Ratio: ratio, Changed: changed}, nil
}

func reuse(state State, entry *cache.Entry, text string, names []string, ratio float64) Decision {
	delta := highlight.Delta{
		Ranges:        slices.Clone(entry.Ranges),
		Names:         slices.Clone(names),
		ReusedRanges:  []diff.Span{{Start: 0, End: len(text)}},
		Version:       entry.Version,
		ChangedRanges: []diff.Span{},
	}
	return Decision{State: state, Entry: entry, Delta: &delta, Ratio: ratio}
}

// Splice returns the old ranges that lie entirely outside every changed span:
// those ending at or before a change's start, and those after the last
// change. Ranges starting inside a change are dropped. changed must be sorted.
func Splice(old []highlight.Range, changed []diff.Span) []highlight.Range {
	var kept []highlight.Range
	i := 0

	for _, c := range changed {
		for i < len(old) && old[i].End <= c.Start {
			kept = append(kept, old[i])
			i++
		}
		for i < len(old) && old[i].Start < c.End {
			i++
		}
	}

	return append(kept, old[i:]...)
}

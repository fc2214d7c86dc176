// Package diff measures how much a text changed between two snapshots.
//
// The default metric is positional: bytes are compared at identical offsets
// and nothing is aligned. A single inserted or deleted byte near the start of
// a large text shifts every byte after it, so the mismatch ratio of such an
// edit approaches 1 and the caller falls back to a full recompute. Callers
// that need alignment-aware numbers can opt into Aligned instead.
package diff

import (
	"slices"
)

// DefaultMergeGap is the largest gap, in bytes, between two changed spans
// that MergeNearby still folds into one span.
const DefaultMergeGap = 30

// MismatchRatio returns the fraction of positions whose bytes differ,
// in [0,1]. Positions are compared up to the shorter length; every position
// past it exists in only one text and counts as a mismatch. The count is
// divided by the longer length. Two empty texts have ratio 0.
func MismatchRatio(prev, next string) float64 {
	maxLen := max(len(prev), len(next))
	if maxLen == 0 {
		return 0
	}

	n := min(len(prev), len(next))
	different := maxLen - n
	for i := 0; i < n; i++ {
		if prev[i] != next[i] {
			different++
		}
	}

	return float64(different) / float64(maxLen)
}

// ChangedRanges returns the spans of next that differ from prev, in next-text
// coordinates, merged with the given gap.
//
// Position-aligned bytes are scanned and contiguous mismatch runs become
// spans. When prev is longer than next a zero-length marker at len(next) is
// appended to signal removed trailing content. When next is longer the
// appended tail (len(prev), len(next)) is added.
func ChangedRanges(prev, next string, gap int) []Span {
	var changes []Span

	n := min(len(prev), len(next))
	start := -1
	for i := 0; i < n; i++ {
		if prev[i] != next[i] {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			changes = append(changes, Span{Start: start, End: i})
			start = -1
		}
	}

	// An open run extends to the end of the next text.
	if start >= 0 {
		changes = append(changes, Span{Start: start, End: len(next)})
	}

	switch {
	case len(prev) > n:
		changes = append(changes, Span{Start: n, End: n})
	case len(next) > n:
		changes = append(changes, Span{Start: n, End: len(next)})
	}

	return MergeNearby(changes, gap)
}

// MergeNearby sorts ranges by start and folds every range that begins
// within gap bytes of the previous one into it. The input slice is left
// untouched.
func MergeNearby(ranges []Span, gap int) []Span {
	if len(ranges) == 0 {
		return nil
	}

	sorted := slices.Clone(ranges)
	slices.SortStableFunc(sorted, func(a, b Span) int {
		return a.Start - b.Start
	})

	merged := []Span{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+gap {
			last.End = max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}

	return merged
}

// ReusedRanges returns the complement of changed within [0, textLen).
// changed must be sorted and non-overlapping, as produced by MergeNearby.
func ReusedRanges(changed []Span, textLen int) []Span {
	var reused []Span
	lastEnd := 0

	for _, c := range changed {
		if c.Start > lastEnd {
			reused = append(reused, Span{Start: lastEnd, End: min(c.Start, textLen)})
		}
		lastEnd = max(lastEnd, c.End)
	}

	if lastEnd < textLen {
		reused = append(reused, Span{Start: lastEnd, End: textLen})
	}

	return reused
}

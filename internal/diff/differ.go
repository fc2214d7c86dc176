package diff

import (
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Differ measures change between two snapshots of a text.
type Differ interface {
	// Ratio returns how much of the text changed, in [0,1].
	Ratio(prev, next string) float64
	// Changes returns the changed spans in next-text coordinates.
	Changes(prev, next string) []Span
}

// Positional is the default Differ. It compares bytes at identical offsets.
type Positional struct {
	MergeGap int
}

// NewPositional returns a positional differ using DefaultMergeGap.
func NewPositional() Positional {
	return Positional{MergeGap: DefaultMergeGap}
}

func (p Positional) Ratio(prev, next string) float64 {
	return MismatchRatio(prev, next)
}

func (p Positional) Changes(prev, next string) []Span {
	return ChangedRanges(prev, next, p.MergeGap)
}

// DefaultAlignTimeout bounds a single aligned diff computation.
const DefaultAlignTimeout = 50 * time.Millisecond

// Aligned computes an alignment-aware diff with diffmatchpatch, so an
// insertion shifts nothing after it. Deleted runs become zero-length markers
// at the deletion point, matching the truncation marker of the positional
// differ.
//
// diffmatchpatch diffs runes and reads every invalid byte as U+FFFD, which
// would misplace byte offsets. Texts that are not valid UTF-8 are measured
// positionally instead.
type Aligned struct {
	MergeGap int
	Timeout  time.Duration
}

// NewAligned returns an aligned differ using the default gap and timeout.
func NewAligned() Aligned {
	return Aligned{MergeGap: DefaultMergeGap, Timeout: DefaultAlignTimeout}
}

func (a Aligned) diffs(prev, next string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = a.Timeout
	return dmp.DiffMain(prev, next, false)
}

// Ratio returns the byte edit distance divided by the longer length.
// An adjacent delete and insert count as max(deleted, inserted).
func (a Aligned) Ratio(prev, next string) float64 {
	maxLen := max(len(prev), len(next))
	if maxLen == 0 || prev == next {
		return 0
	}
	if !validUTF8(prev, next) {
		return MismatchRatio(prev, next)
	}

	distance, inserted, deleted := 0, 0, 0
	for _, d := range a.diffs(prev, next) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
		case diffmatchpatch.DiffEqual:
			distance += max(inserted, deleted)
			inserted, deleted = 0, 0
		}
	}
	distance += max(inserted, deleted)

	return min(1, float64(distance)/float64(maxLen))
}

func (a Aligned) Changes(prev, next string) []Span {
	if prev == next {
		return nil
	}
	if !validUTF8(prev, next) {
		return ChangedRanges(prev, next, a.MergeGap)
	}

	var changes []Span
	pos := 0
	for _, d := range a.diffs(prev, next) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			changes = append(changes, Span{Start: pos, End: pos + len(d.Text)})
			pos += len(d.Text)
		case diffmatchpatch.DiffDelete:
			changes = append(changes, Span{Start: pos, End: pos})
		case diffmatchpatch.DiffEqual:
			pos += len(d.Text)
		}
	}

	return MergeNearby(changes, a.MergeGap)
}

func validUTF8(prev, next string) bool {
	return utf8.ValidString(prev) && utf8.ValidString(next)
}

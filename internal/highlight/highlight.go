// Package highlight defines the highlighting data model shared by the caches
// and the request engine, together with the parser and highlighter that
// produce it.
package highlight

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/zjrosen/hlcache/internal/diff"
)

// DefaultNames is the category set used when a request supplies none.
var DefaultNames = []string{
	"keyword", "function", "type", "string",
	"number", "comment", "constant", "variable",
}

// Range is a half-open byte span [Start, End) of the highlighted text,
// tagged with an index into the request's category names.
type Range struct {
	Start    int `json:"start"`
	End      int `json:"end"`
	Category int `json:"highlight_type"`
}

// Delta is one highlighting outcome as returned to the caller.
//
// ChangedRanges and ReusedRanges partition [0, len(text)) when both are
// present. ReusedRanges is nil when nothing from an earlier result applies.
type Delta struct {
	Ranges        []Range     `json:"ranges"`
	Names         []string    `json:"highlight_names"`
	ReusedRanges  []diff.Span `json:"reused_ranges,omitempty"`
	Version       uint64      `json:"version"`
	ChangedRanges []diff.Span `json:"changed_ranges"`
}

// MarshalJSON renders the wire form, emitting empty arrays instead of null
// for ranges, names and changed ranges.
func (d Delta) MarshalJSON() ([]byte, error) {
	type wire Delta
	w := wire(d)
	if w.Ranges == nil {
		w.Ranges = []Range{}
	}
	if w.Names == nil {
		w.Names = []string{}
	}
	if w.ChangedRanges == nil {
		w.ChangedRanges = []diff.Span{}
	}
	return json.Marshal(w)
}

// Clone returns a copy that shares no slices with d.
func (d Delta) Clone() Delta {
	return Delta{
		Ranges:        slices.Clone(d.Ranges),
		Names:         slices.Clone(d.Names),
		ReusedRanges:  slices.Clone(d.ReusedRanges),
		Version:       d.Version,
		ChangedRanges: slices.Clone(d.ChangedRanges),
	}
}

// Artifact is the parsed form of a text, shared by reference between the
// caches and in-flight requests. It is immutable once produced.
type Artifact interface {
	Language() string
	Source() string
}

// ParseNames decodes a JSON array of category names. Absent, malformed or
// empty input yields a copy of DefaultNames.
func ParseNames(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return slices.Clone(DefaultNames)
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil || len(names) == 0 {
		return slices.Clone(DefaultNames)
	}
	return names
}

// NormalizeLanguage returns the cache key form of a language name.
func NormalizeLanguage(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}

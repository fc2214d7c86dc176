// Package theme parses and memoizes color themes.
package theme

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/zeebo/xxh3"

	"github.com/zjrosen/hlcache/internal/highlight"
)

// Theme maps category names to color values. A Theme is immutable after
// Parse and is shared between callers.
type Theme struct {
	Colors map[string]string `json:"theme"`
}

// Parse decodes a {"theme": {name: color}} document. A document without a
// theme object is rejected.
func Parse(raw string) (*Theme, error) {
	var doc struct {
		Theme *map[string]string `json:"theme"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &highlight.ThemeParseError{Err: err}
	}
	if doc.Theme == nil {
		return nil, &highlight.ThemeParseError{Err: errors.New(`missing "theme" object`)}
	}
	return &Theme{Colors: *doc.Theme}, nil
}

// Empty returns a theme with no colors.
func Empty() *Theme {
	return &Theme{Colors: map[string]string{}}
}

// Len returns the number of named colors.
func (t *Theme) Len() int {
	return len(t.Colors)
}

// Names returns the category names in sorted order.
func (t *Theme) Names() []string {
	names := make([]string, 0, len(t.Colors))
	for name := range t.Colors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Color resolves a category to a color. "function.method" falls back to
// "function" when no exact entry exists. Malformed values report false.
func (t *Theme) Color(category string) (colorful.Color, bool) {
	value, ok := t.Colors[category]
	if !ok {
		prefix, _, found := strings.Cut(category, ".")
		if !found {
			return colorful.Color{}, false
		}
		if value, ok = t.Colors[prefix]; !ok {
			return colorful.Color{}, false
		}
	}

	c, err := colorful.Hex(value)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}

// Hash is a content hash over the sorted entries. Two themes with the same
// colors hash equal regardless of the raw document's key order.
func (t *Theme) Hash() uint64 {
	h := xxh3.New()
	for _, name := range t.Names() {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(t.Colors[name])
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// Package flags holds feature flags read from configuration. Unknown flags
// are disabled.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/hlcache/internal/log"
)

const (
	// FlagAlignedDiff replaces the positional change metric with an
	// alignment-aware diff, so an insertion near the top of a file no longer
	// forces a full recompute.
	FlagAlignedDiff = "aligned-diff"
)

// Known lists every flag with a one-line description.
var Known = map[string]string{
	FlagAlignedDiff: "measure changes with an alignment-aware diff instead of byte positions",
}

// Registry is a read-only set of flag values.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map. A nil map disables every flag.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: maps.Clone(flags)}
	if r.flags == nil {
		r.flags = make(map[string]bool)
	}

	for _, name := range slices.Sorted(maps.Keys(r.flags)) {
		if _, ok := Known[name]; !ok {
			log.Warn(log.CatConfig, "Unknown feature flag in config", "flag", name)
		}
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(r.flags), "flags", r.All())
	return r
}

// Enabled reports whether name is on. Unknown names and a nil registry
// report false.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of the flag values.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return map[string]bool{}
	}
	return maps.Clone(r.flags)
}

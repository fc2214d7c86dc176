// Package config provides configuration types, defaults and validation for
// hlcache.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zjrosen/hlcache/internal/cache"
	"github.com/zjrosen/hlcache/internal/diff"
	"github.com/zjrosen/hlcache/internal/highlight"
	"github.com/zjrosen/hlcache/internal/tracing"
)

// Config holds all configuration options for hlcache.
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// CacheConfig holds the three tunables of the incremental cache.
type CacheConfig struct {
	// StaleAfter is how long a cached result stays eligible for reuse.
	StaleAfter time.Duration `mapstructure:"stale_after"`

	// SimilarityThreshold is the change ratio at and above which a text is
	// considered too different to reuse anything.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`

	// MergeGap is the largest gap in bytes between two changed spans that
	// are still reported as one.
	MergeGap int `mapstructure:"merge_gap"`
}

type HighlightConfig struct {
	Names     []string `mapstructure:"names"`
	ThemeFile string   `mapstructure:"theme_file"`
}

type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"` // debug, info, warn or error
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Cache: CacheConfig{
			StaleAfter:          cache.DefaultStaleAfter,
			SimilarityThreshold: cache.DefaultThreshold,
			MergeGap:            diff.DefaultMergeGap,
		},
		Highlight: HighlightConfig{
			Names: slices.Clone(highlight.DefaultNames),
		},
		Log: LogConfig{
			Level: "debug",
		},
		Tracing: tracing.DefaultConfig(),
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
		Flags: map[string]bool{},
	}
}

// Validate checks every section and joins the errors found.
func Validate(cfg Config) error {
	return errors.Join(
		ValidateCache(cfg.Cache),
		ValidateHighlight(cfg.Highlight),
		ValidateLog(cfg.Log),
		ValidateTracing(cfg.Tracing),
		ValidateWatch(cfg.Watch),
	)
}

// ValidateCache checks the cache tunables.
func ValidateCache(c CacheConfig) error {
	if c.StaleAfter <= 0 {
		return fmt.Errorf("cache.stale_after must be positive, got %v", c.StaleAfter)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("cache.similarity_threshold must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.MergeGap < 0 {
		return fmt.Errorf("cache.merge_gap must not be negative, got %d", c.MergeGap)
	}
	return nil
}

// ValidateHighlight checks category names. An empty list is valid and
// selects the defaults.
func ValidateHighlight(h HighlightConfig) error {
	seen := make(map[string]bool, len(h.Names))
	for i, name := range h.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("highlight.names[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("highlight.names[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
	}
	return nil
}

func ValidateLog(l LogConfig) error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", l.Level)
	}
}

// ValidateTracing checks tracing configuration. Path requirements are only
// enforced when tracing is enabled.
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	if !tracing.ValidExporter(t.Exporter) {
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
	}
	if t.Enabled && t.Exporter == tracing.ExporterOTLP && t.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

func ValidateWatch(w WatchConfig) error {
	if w.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %v", w.Debounce)
	}
	return nil
}

// NamesOrDefault returns the configured category names, or the defaults.
func (h HighlightConfig) NamesOrDefault() []string {
	if len(h.Names) == 0 {
		return slices.Clone(highlight.DefaultNames)
	}
	return slices.Clone(h.Names)
}

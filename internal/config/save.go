package config

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/hlcache/internal/flags"
	"github.com/zjrosen/hlcache/internal/log"
)

// DefaultYAML renders Defaults as a commented YAML document.
func DefaultYAML() ([]byte, error) {
	d := Defaults()

	names := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, n := range d.Highlight.Names {
		names.Content = append(names.Content, scalar(n))
	}

	flagNodes := mapping()
	for _, name := range slices.Sorted(maps.Keys(flags.Known)) {
		key := scalar(name)
		key.HeadComment = flags.Known[name]
		flagNodes.Content = append(flagNodes.Content, key, scalar(false))
	}

	root := mapping(
		section("cache", "Incremental cache tunables", mapping(
			pair("stale_after", d.Cache.StaleAfter.String()),
			pair("similarity_threshold", d.Cache.SimilarityThreshold),
			pair("merge_gap", d.Cache.MergeGap),
		)),
		section("highlight", "Category names ranges index into, and an optional theme document", mapping(
			[]*yaml.Node{scalar("names"), names},
			pair("theme_file", d.Highlight.ThemeFile),
		)),
		section("log", "Debug logging (also enabled by --debug or HLCACHE_DEBUG)", mapping(
			pair("debug", d.Log.Debug),
			pair("path", d.Log.Path),
			pair("level", d.Log.Level),
		)),
		section("tracing", "OpenTelemetry export: none | file | stdout | otlp", mapping(
			pair("enabled", d.Tracing.Enabled),
			pair("exporter", d.Tracing.Exporter),
			pair("file_path", d.Tracing.FilePath),
			pair("otlp_endpoint", d.Tracing.OTLPEndpoint),
			pair("sample_rate", d.Tracing.SampleRate),
		)),
		section("watch", "", mapping(
			pair("debounce", d.Watch.Debounce.String()),
		)),
		section("flags", "Feature flags", flagNodes),
	)

	doc := &yaml.Node{Kind: yaml.DocumentNode, HeadComment: "hlcache configuration", Content: []*yaml.Node{root}}
	return encode(doc)
}

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is replaced.
func WriteDefault(path string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", path)

	data, err := DefaultYAML()
	if err != nil {
		return fmt.Errorf("rendering default config: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", path)
		return err
	}

	log.Info(log.CatConfig, "Created default config", "path", path)
	return nil
}

// SaveFlag sets flags.<name> in the config file at path, keeping comments
// and every other setting. The file is created when missing.
func SaveFlag(path, name string, enabled bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is the user's config file
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode}
	}
	if len(doc.Content) == 0 {
		doc.Content = []*yaml.Node{mapping()}
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level is not a mapping")
	}

	flagsNode := lookupOrAppend(doc.Content[0], "flags", mapping())
	if flagsNode.Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: flags is not a mapping")
	}
	value := lookupOrAppend(flagsNode, name, scalar(enabled))
	value.Kind = yaml.ScalarNode
	value.Tag = ""
	value.Value = strconv.FormatBool(enabled)
	value.Style = 0

	out, err := encode(&doc)
	if err != nil {
		return err
	}
	return writeAtomic(path, out)
}

// lookupOrAppend returns the value under key in mapping m, appending def
// when the key is absent.
func lookupOrAppend(m *yaml.Node, key string, def *yaml.Node) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	m.Content = append(m.Content, scalar(key), def)
	return def
}

func scalar(v any) *yaml.Node {
	switch val := v.(type) {
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatBool(val)}
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.Itoa(val)}
	case float64:
		// Left untagged so 1.0 renders as 1 rather than !!float 1.
		return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(val, 'f', -1, 64)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(val)}
	}
}

func pair(key string, value any) []*yaml.Node {
	return []*yaml.Node{scalar(key), scalar(value)}
}

func section(key, comment string, value *yaml.Node) []*yaml.Node {
	k := scalar(key)
	k.HeadComment = comment
	return []*yaml.Node{k, value}
}

func mapping(pairs ...[]*yaml.Node) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range pairs {
		m.Content = append(m.Content, p...)
	}
	return m
}

func encode(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// writeAtomic writes data to a temp file beside path and renames it over
// path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".hlcache.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

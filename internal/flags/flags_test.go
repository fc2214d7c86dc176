package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{name: "enabled flag", registry: New(map[string]bool{FlagAlignedDiff: true}), flag: FlagAlignedDiff, expected: true},
		{name: "disabled flag", registry: New(map[string]bool{FlagAlignedDiff: false}), flag: FlagAlignedDiff, expected: false},
		{name: "unknown flag", registry: New(map[string]bool{FlagAlignedDiff: true}), flag: "per-document-key", expected: false},
		{name: "nil registry", registry: nil, flag: FlagAlignedDiff, expected: false},
		{name: "nil map", registry: New(nil), flag: FlagAlignedDiff, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestRegistry_CopiesInput(t *testing.T) {
	input := map[string]bool{FlagAlignedDiff: true}
	r := New(input)

	input[FlagAlignedDiff] = false
	require.True(t, r.Enabled(FlagAlignedDiff), "registry is read-only after New")

	all := r.All()
	all[FlagAlignedDiff] = false
	require.True(t, r.Enabled(FlagAlignedDiff))
}

func TestRegistry_AllOnNil(t *testing.T) {
	var r *Registry
	require.Empty(t, r.All())
	require.NotNil(t, r.All())
}

func TestKnownFlagsHaveDescriptions(t *testing.T) {
	for name, desc := range Known {
		require.NotEmpty(t, desc, name)
	}
	require.Contains(t, Known, FlagAlignedDiff)
}

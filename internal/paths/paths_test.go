package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, filepath.Join(home, ".config", "hlcache"), UserConfigDir())
	require.Equal(t, filepath.Join(home, ".config", "hlcache", "config.yaml"), UserConfigPath())
	require.Equal(t, filepath.Join(home, ".config", "hlcache", "traces", "traces.jsonl"), DefaultTracePath())
}

func TestResolveConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	require.Equal(t, "", ResolveConfig(""), "nothing exists")
	require.Equal(t, "custom.yaml", ResolveConfig("custom.yaml"), "explicit path is not checked")

	user := UserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(user), 0750))
	require.NoError(t, os.WriteFile(user, []byte("{}"), 0600))
	require.Equal(t, user, ResolveConfig(""))

	require.NoError(t, os.MkdirAll(filepath.Dir(ProjectConfigPath), 0750))
	require.NoError(t, os.WriteFile(ProjectConfigPath, []byte("{}"), 0600))
	require.Equal(t, ProjectConfigPath, ResolveConfig(""), "project config wins over user config")
}

func TestResolveConfig_IgnoresDirectories(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	require.NoError(t, os.MkdirAll(ProjectConfigPath, 0750))
	require.Equal(t, "", ResolveConfig(""))
}

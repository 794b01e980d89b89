package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envDB, "")
	t.Setenv(envWorkspaceDir, "")
	t.Setenv(envDebugLog, "")
	t.Setenv(envMaxConcurrency, "")
	t.Setenv(envConfigFile, filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, defaultMaxConcurrency, cfg.MaxConcurrency)
	require.Contains(t, cfg.DBPath, ".kbtz")
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "kbtz.db")
	ws := filepath.Join(dir, "workspace")
	t.Setenv(envDB, db)
	t.Setenv(envWorkspaceDir, ws)
	t.Setenv(envMaxConcurrency, "5")
	t.Setenv(envConfigFile, filepath.Join(dir, "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, db, cfg.DBPath)
	require.Equal(t, ws, cfg.WorkspaceDir)
	require.Equal(t, 5, cfg.MaxConcurrency)
}

func TestLoadExpandsTildeInEnvPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv(envDB, "~/custom/kbtz.db")
	t.Setenv(envWorkspaceDir, "~/custom/workspace")
	t.Setenv(envDebugLog, "~/custom/debug.log")
	t.Setenv(envMaxConcurrency, "")
	t.Setenv(envConfigFile, filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "custom", "kbtz.db"), cfg.DBPath)
	require.Equal(t, filepath.Join(home, "custom", "workspace"), cfg.WorkspaceDir)
	require.Equal(t, filepath.Join(home, "custom", "debug.log"), cfg.DebugLogPath)
}

func TestExpandHome(t *testing.T) {
	cases := []struct {
		home, path, want string
	}{
		{"/home/u", "~/x/y", "/home/u/x/y"},
		{"/home/u", "/abs/path", "/abs/path"},
		{"/home/u", "rel/path", "rel/path"},
		{"/home/u", "~", "~"},
		{"/home/u", "~user/x", "~user/x"},
		{"/home/u", "", ""},
		{"", "~/x", "~/x"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, expandHome(tc.home, tc.path), "home %q path %q", tc.home, tc.path)
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_concurrency = 7\nbackend_prefix = [\"--dangerously-skip-permissions\"]\n"), 0o644))
	t.Setenv(envConfigFile, path)
	t.Setenv(envDB, "")
	t.Setenv(envWorkspaceDir, "")
	t.Setenv(envMaxConcurrency, "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxConcurrency)
	require.Equal(t, []string{"--dangerously-skip-permissions"}, cfg.BackendPrefix)
}

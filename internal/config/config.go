// Package config resolves kbtz's run-time configuration: store path,
// workspace directory, debug log path, concurrency cap, and backend
// argv prefix/extra flags.
//
// Grounded on the teacher's env-var-driven config resolution
// (ResolveRoleAgentConfig's "flags override env override default"
// layering) collapsed to a single Load() since kbtz manages one
// workspace per process, not per-rig config. The optional TOML file
// uses github.com/BurntSushi/toml, the teacher's own TOML dependency.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	envDB             = "KBTZ_DB"
	envWorkspaceDir   = "KBTZ_WORKSPACE_DIR"
	envDebugLog       = "KBTZ_DEBUG_LOG"
	envMaxConcurrency = "KBTZ_MAX_CONCURRENCY"
	envConfigFile     = "KBTZ_CONFIG"

	defaultMaxConcurrency = 2
)

// fileConfig is the shape of the optional TOML config file.
type fileConfig struct {
	MaxConcurrency int      `toml:"max_concurrency"`
	BackendPrefix  []string `toml:"backend_prefix"`
	BackendExtra   []string `toml:"backend_extra"`
}

// Config is the resolved run-time configuration for one kbtz process.
type Config struct {
	DBPath         string
	WorkspaceDir   string
	DebugLogPath   string
	MaxConcurrency int
	BackendPrefix  []string
	BackendExtra   []string
}

// Load resolves configuration from, in increasing priority: built-in
// defaults, the TOML config file (if present), then environment
// variables. Paths are expanded relative to $HOME when given as "~/...".
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	cfg := Config{
		DBPath:         filepath.Join(home, ".kbtz", "kbtz.db"),
		WorkspaceDir:   filepath.Join(home, ".kbtz", "workspace"),
		MaxConcurrency: defaultMaxConcurrency,
	}

	fc, err := loadFileConfig(home)
	if err != nil {
		return Config{}, err
	}
	if fc.MaxConcurrency > 0 {
		cfg.MaxConcurrency = fc.MaxConcurrency
	}
	cfg.BackendPrefix = fc.BackendPrefix
	cfg.BackendExtra = fc.BackendExtra

	if v := os.Getenv(envDB); v != "" {
		cfg.DBPath = expandHome(home, v)
	}
	if v := os.Getenv(envWorkspaceDir); v != "" {
		cfg.WorkspaceDir = expandHome(home, v)
	}
	if v := os.Getenv(envDebugLog); v != "" {
		cfg.DebugLogPath = expandHome(home, v)
	}
	if v := os.Getenv(envMaxConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrency = n
		}
	}
	return cfg, nil
}

// expandHome rewrites a leading "~/" against the home directory Load
// already resolved. Paths without the prefix, and any path when home is
// unknown, pass through unchanged.
func expandHome(home, path string) string {
	if home == "" || !strings.HasPrefix(path, "~/") {
		return path
	}
	return filepath.Join(home, path[2:])
}

func loadFileConfig(home string) (fileConfig, error) {
	var fc fileConfig
	path := os.Getenv(envConfigFile)
	if path == "" {
		if home == "" {
			return fc, nil
		}
		path = filepath.Join(home, ".kbtz", "config.toml")
	}
	if _, err := os.Stat(path); err != nil {
		return fc, nil
	}
	_, err := toml.DecodeFile(path, &fc)
	return fc, err
}

// EnsureDirs creates the workspace directory and the store's parent
// directory if they don't already exist.
func (c Config) EnsureDirs() error {
	if err := os.MkdirAll(c.WorkspaceDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(c.DBPath), 0o755)
}

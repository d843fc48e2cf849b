// Package config loads muster configuration from YAML (with MUSTER_*
// environment overrides) and applies defaults. The config file is optional;
// every setting has a workable default for a fresh checkout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// WorkspaceStrategy selects how workspaces are provisioned.
type WorkspaceStrategy string

const (
	// StrategyClone clones the repository under the workspace base dir.
	StrategyClone WorkspaceStrategy = "clone"
	// StrategyScript delegates provisioning to a user-supplied executable.
	StrategyScript WorkspaceStrategy = "script"
)

// PostCloneCommand is one command run inside a freshly-cloned workspace.
type PostCloneCommand struct {
	// Command is run through the shell with cwd = the new clone root.
	Command string `mapstructure:"command" yaml:"command"`
	// AllowFailure downgrades a non-zero exit to a warning.
	AllowFailure bool `mapstructure:"allow_failure" yaml:"allow_failure"`
}

// Workspace holds workspace-manager settings.
type Workspace struct {
	Strategy  WorkspaceStrategy  `mapstructure:"strategy"`
	Script    string             `mapstructure:"script"`
	BaseDir   string             `mapstructure:"base_dir"`
	CloneURL  string             `mapstructure:"clone_url"`
	PostClone []PostCloneCommand `mapstructure:"post_clone"`
	// Registry is the workspace registry file path.
	Registry string `mapstructure:"registry"`
	// LockDir overrides where lock files live, independent of the registry.
	LockDir string `mapstructure:"lock_dir"`
}

// Executor holds executor-gateway settings.
type Executor struct {
	Default           string        `mapstructure:"default"`
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	ClaudeBin         string        `mapstructure:"claude_bin"`
	CodexBin          string        `mapstructure:"codex_bin"`
}

// Config is the full engine configuration.
type Config struct {
	// PlansDir is the directory of *.plan.md files.
	PlansDir  string    `mapstructure:"plans_dir"`
	Workspace Workspace `mapstructure:"workspace"`
	Executor  Executor  `mapstructure:"executor"`
}

// Load reads configuration from the given file (empty means the default
// location, which may be absent) and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	home, _ := os.UserHomeDir()
	musterDir := filepath.Join(home, ".muster")

	v.SetDefault("plans_dir", "plans")
	v.SetDefault("workspace.strategy", string(StrategyClone))
	v.SetDefault("workspace.base_dir", filepath.Join(musterDir, "workspaces"))
	v.SetDefault("workspace.registry", filepath.Join(musterDir, "workspaces.json"))
	v.SetDefault("executor.default", "claude-code")
	v.SetDefault("executor.inactivity_timeout", "10m")
	v.SetDefault("executor.claude_bin", "claude")
	v.SetDefault("executor.codex_bin", "codex")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(filepath.Join(musterDir, "config.yml"))
		// Default config is optional.
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Workspace.LockDir == "" {
		cfg.Workspace.LockDir = filepath.Join(filepath.Dir(cfg.Workspace.Registry), "locks")
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Workspace.Strategy {
	case StrategyClone, StrategyScript, "":
	default:
		return fmt.Errorf("workspace.strategy: %q is invalid (valid values: clone, script)", c.Workspace.Strategy)
	}
	if c.Workspace.Strategy == StrategyScript && c.Workspace.Script == "" {
		return fmt.Errorf("workspace.script: required when workspace.strategy is 'script'")
	}
	return nil
}

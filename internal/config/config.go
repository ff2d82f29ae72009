// Package config layers <tbd>/config.yml under environment variable
// overrides via viper, mirroring the teacher's internal/config wiring
// (spec.md §6 "Configuration keys").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for config overrides
// (e.g. TBD_SYNC_BRANCH overrides sync.branch).
const EnvPrefix = "TBD"

// FileName is the tracked config file name (spec.md §6 on-disk layout).
const FileName = "config.yml"

// LegacyFileName is tolerated for read compatibility with repos
// bootstrapped against the teacher's naming convention.
const LegacyFileName = "config.yaml"

// Config is the resolved, typed view over a repo's tbd configuration.
type Config struct {
	SyncBranch                 string
	SyncRemote                 string
	DisplayIDPrefix            string
	AutoSync                   bool
	IndexEnabled               bool
	RequireConfirmOnMassDelete bool
}

// Defaults mirror spec.md §6 ("defaults e.g. tbd-sync / origin").
func Defaults() Config {
	return Config{
		SyncBranch:      "tbd-sync",
		SyncRemote:      "origin",
		DisplayIDPrefix: "tbd",
		AutoSync:        false,
		IndexEnabled:    true,
	}
}

// Load reads tbdRoot/config.yml (or, if absent, the legacy config.yaml)
// layered under TBD_*-prefixed environment variables, falling back to
// Defaults() for anything unset.
func Load(tbdRoot string) (Config, error) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(FileName, ".yml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(tbdRoot)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("sync.branch", d.SyncBranch)
	v.SetDefault("sync.remote", d.SyncRemote)
	v.SetDefault("display.id_prefix", d.DisplayIDPrefix)
	v.SetDefault("settings.auto_sync", d.AutoSync)
	v.SetDefault("settings.index_enabled", d.IndexEnabled)
	v.SetDefault("sync.require_confirmation_on_mass_delete", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		// Not found under config.yml: try the legacy name directly
		// before giving up and running on defaults + env alone.
		v.SetConfigName(strings.TrimSuffix(LegacyFileName, ".yaml"))
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, err
			}
		}
	}

	return Config{
		SyncBranch:                 v.GetString("sync.branch"),
		SyncRemote:                 v.GetString("sync.remote"),
		DisplayIDPrefix:            v.GetString("display.id_prefix"),
		AutoSync:                   v.GetBool("settings.auto_sync"),
		IndexEnabled:               v.GetBool("settings.index_enabled"),
		RequireConfirmOnMassDelete: v.GetBool("sync.require_confirmation_on_mass_delete"),
	}, nil
}

// Exists reports whether a config file (current or legacy name) is
// present under tbdRoot.
func Exists(tbdRoot string) bool {
	for _, name := range []string{FileName, LegacyFileName} {
		if _, err := os.Stat(filepath.Join(tbdRoot, name)); err == nil {
			return true
		}
	}
	return false
}

const defaultConfigTemplate = `# tbd configuration (spec.md §6)
sync:
  branch: %s
  remote: %s
display:
  id_prefix: %s
settings:
  auto_sync: %t
  index_enabled: %t
`

// gitignoreContent keeps the worktree, local state, and scratch files
// off the main branch (spec.md §6 on-disk layout). Everything else
// under <tbd>/ (config.yml, workspaces/) is tracked like code.
const gitignoreContent = `data-sync-worktree/
data-sync/
docs/
state.yml
.lock
*.tmp
`

// WriteDefault writes a fresh tbdRoot/config.yml from Defaults() plus
// the tbdRoot/.gitignore that keeps the data plane off the main branch,
// refusing to overwrite an existing config (current or legacy name).
func WriteDefault(tbdRoot string, prefix string) error {
	if Exists(tbdRoot) {
		return fmt.Errorf("config already exists under %s", tbdRoot)
	}
	d := Defaults()
	if prefix != "" {
		d.DisplayIDPrefix = prefix
	}
	content := fmt.Sprintf(defaultConfigTemplate, d.SyncBranch, d.SyncRemote, d.DisplayIDPrefix, d.AutoSync, d.IndexEnabled)
	if err := os.MkdirAll(tbdRoot, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tbdRoot, FileName), []byte(content), 0o600); err != nil {
		return err
	}
	// #nosec G306 -- a gitignore is not sensitive
	return os.WriteFile(filepath.Join(tbdRoot, ".gitignore"), []byte(gitignoreContent), 0o644)
}

// Validate reports the first structural problem with c, if any: an
// empty branch/remote/prefix is never valid since every sync operation
// depends on them.
func Validate(c Config) error {
	switch {
	case strings.TrimSpace(c.SyncBranch) == "":
		return fmt.Errorf("sync.branch must not be empty")
	case strings.TrimSpace(c.SyncRemote) == "":
		return fmt.Errorf("sync.remote must not be empty")
	case strings.TrimSpace(c.DisplayIDPrefix) == "":
		return fmt.Errorf("display.id_prefix must not be empty")
	}
	return nil
}

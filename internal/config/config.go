package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// AppName names the config and state directories.
const AppName = "reqifclean"

// Config holds all reqifclean configuration.
type Config struct {
	InputDir    string `toml:"input_dir"`
	OutputDir   string `toml:"output_dir"`
	HaltOnError bool   `toml:"halt_on_error"`

	Modes  ModesConfig  `toml:"modes"`
	Policy PolicyConfig `toml:"policy"`
	Schema SchemaConfig `toml:"schema"`
	Backup BackupConfig `toml:"backup"`
	Ledger LedgerConfig `toml:"ledger"`
	Watch  WatchConfig  `toml:"watch"`

	// Source is the file the config was read from, empty for defaults.
	Source string `toml:"-"`
}

type ModesConfig struct {
	Cleanup    bool `toml:"cleanup"`
	Identifier bool `toml:"identifier"`
	Validate   bool `toml:"validate"`
	Debug      bool `toml:"debug"`
}

type PolicyConfig struct {
	ForeignPrefix string `toml:"foreign_prefix"`
}

type SchemaConfig struct {
	Dir                 string `toml:"dir"`
	Root                string `toml:"root"`
	AllowMissingImports bool   `toml:"allow_missing_imports"`
}

type BackupConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type LedgerConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type WatchConfig struct {
	Settle string `toml:"settle"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	state := CompressHome(StateDir())
	return Config{
		InputDir:  "input",
		OutputDir: "output",
		Policy: PolicyConfig{
			ForeignPrefix: "CB-",
		},
		Schema: SchemaConfig{
			Dir:  CompressHome(filepath.Join(ConfigDir(), "schema")),
			Root: "reqif.xsd",
		},
		Backup: BackupConfig{
			Enabled: false,
			Dir:     filepath.Join(state, "backups"),
		},
		Ledger: LedgerConfig{
			Enabled: false,
			Path:    filepath.Join(state, "ledger.db"),
		},
		Watch: WatchConfig{
			Settle: "2s",
		},
	}
}

// Load reads config from path, or from the standard locations when path is
// empty, falling back to defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Source = path
	} else {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				if _, err := toml.DecodeFile(p, &cfg); err != nil {
					return cfg, fmt.Errorf("parse config %s: %w", p, err)
				}
				cfg.Source = p
				break
			}
		}
	}

	if _, err := cfg.SettleInterval(); err != nil {
		return cfg, err
	}

	// Expand ~ in paths
	cfg.InputDir = expandHome(cfg.InputDir)
	cfg.OutputDir = expandHome(cfg.OutputDir)
	cfg.Schema.Dir = expandHome(cfg.Schema.Dir)
	cfg.Backup.Dir = expandHome(cfg.Backup.Dir)
	cfg.Ledger.Path = expandHome(cfg.Ledger.Path)

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, AppName, "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", AppName, "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// SettleInterval parses watch.settle.
func (c Config) SettleInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Settle)
	if err != nil {
		return 0, fmt.Errorf("watch.settle %q: %w", c.Watch.Settle, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("watch.settle %q: must not be negative", c.Watch.Settle)
	}
	return d, nil
}

// Rewrites reports whether any mode that modifies documents is active.
func (c Config) Rewrites() bool {
	return c.Modes.Cleanup || c.Modes.Identifier
}

// ModeNames lists the active modes in fixed order, comma separated.
func (c Config) ModeNames() string {
	var names []string
	if c.Modes.Cleanup {
		names = append(names, "cleanup")
	}
	if c.Modes.Identifier {
		names = append(names, "identifier")
	}
	if c.Modes.Validate {
		names = append(names, "validate")
	}
	if c.Modes.Debug {
		names = append(names, "debug")
	}
	return strings.Join(names, ",")
}

// StateDir returns the reqifclean state directory.
// Uses $XDG_STATE_HOME/reqifclean if set, otherwise ~/.local/state/reqifclean.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", AppName)
}

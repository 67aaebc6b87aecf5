package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.InputDir != "input" {
		t.Errorf("InputDir = %q", cfg.InputDir)
	}
	if cfg.OutputDir != "output" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Modes.Cleanup || cfg.Modes.Identifier || cfg.Modes.Validate || cfg.Modes.Debug {
		t.Error("no mode should be active by default")
	}
	if cfg.Policy.ForeignPrefix != "CB-" {
		t.Errorf("Policy.ForeignPrefix = %q", cfg.Policy.ForeignPrefix)
	}
	if cfg.Schema.Root != "reqif.xsd" {
		t.Errorf("Schema.Root = %q", cfg.Schema.Root)
	}
	if cfg.Backup.Enabled {
		t.Error("Backup.Enabled should default to false")
	}
	if cfg.Ledger.Enabled {
		t.Error("Ledger.Enabled should default to false")
	}
	if cfg.HaltOnError {
		t.Error("HaltOnError should default to false")
	}
	if d, err := cfg.SettleInterval(); err != nil || d != 2*time.Second {
		t.Errorf("SettleInterval = %v, %v", d, err)
	}
}

func TestLoad_NoConfig(t *testing.T) {
	// Point XDG to an empty dir so no config file is found
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}

	// Should have expanded defaults
	if strings.HasPrefix(cfg.Ledger.Path, "~/") {
		t.Errorf("Ledger.Path not expanded: %q", cfg.Ledger.Path)
	}
	want := filepath.Join(home, ".local", "state", "reqifclean", "ledger.db")
	if cfg.Ledger.Path != want {
		t.Errorf("Ledger.Path = %q, want %q", cfg.Ledger.Path, want)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	configDir := filepath.Join(xdg, "reqifclean")
	os.MkdirAll(configDir, 0o755)

	tomlContent := `input_dir = "/data/in"
output_dir = "/data/out"
halt_on_error = true

[modes]
cleanup = true
validate = true

[policy]
foreign_prefix = "XX-"

[schema]
dir = "/schemas"
allow_missing_imports = true

[backup]
enabled = true
dir = "/backups"

[watch]
settle = "500ms"
`
	os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(tomlContent), 0o644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.InputDir != "/data/in" || cfg.OutputDir != "/data/out" {
		t.Errorf("dirs = %q, %q", cfg.InputDir, cfg.OutputDir)
	}
	if !cfg.HaltOnError {
		t.Error("HaltOnError should be true")
	}
	if !cfg.Modes.Cleanup || cfg.Modes.Identifier || !cfg.Modes.Validate {
		t.Errorf("Modes = %+v", cfg.Modes)
	}
	if cfg.Policy.ForeignPrefix != "XX-" {
		t.Errorf("ForeignPrefix = %q", cfg.Policy.ForeignPrefix)
	}
	if cfg.Schema.Dir != "/schemas" || cfg.Schema.Root != "reqif.xsd" || !cfg.Schema.AllowMissingImports {
		t.Errorf("Schema = %+v", cfg.Schema)
	}
	if !cfg.Backup.Enabled || cfg.Backup.Dir != "/backups" {
		t.Errorf("Backup = %+v", cfg.Backup)
	}
	if d, _ := cfg.SettleInterval(); d != 500*time.Millisecond {
		t.Errorf("SettleInterval = %v", d)
	}
	if cfg.Source != filepath.Join(configDir, "config.toml") {
		t.Errorf("Source = %q", cfg.Source)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "custom.toml")
	os.WriteFile(path, []byte(`input_dir = "/explicit"`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InputDir != "/explicit" {
		t.Errorf("InputDir = %q", cfg.InputDir)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	configDir := filepath.Join(xdg, "reqifclean")
	os.MkdirAll(configDir, 0o755)
	os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(`input_dir = "~/exports"`), 0o644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := filepath.Join(home, "exports")
	if cfg.InputDir != want {
		t.Errorf("InputDir = %q, want %q", cfg.InputDir, want)
	}
}

func TestLoad_XDGPriority(t *testing.T) {
	xdg := t.TempDir()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", home)

	// Create config at XDG path
	xdgDir := filepath.Join(xdg, "reqifclean")
	os.MkdirAll(xdgDir, 0o755)
	os.WriteFile(filepath.Join(xdgDir, "config.toml"), []byte(`input_dir = "/from-xdg"`), 0o644)

	// Also create config at ~/.config path
	homeDir := filepath.Join(home, ".config", "reqifclean")
	os.MkdirAll(homeDir, 0o755)
	os.WriteFile(filepath.Join(homeDir, "config.toml"), []byte(`input_dir = "/from-home"`), 0o644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.InputDir != "/from-xdg" {
		t.Errorf("InputDir = %q, want /from-xdg (XDG should take priority)", cfg.InputDir)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	configDir := filepath.Join(xdg, "reqifclean")
	os.MkdirAll(configDir, 0o755)
	os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(`input_dir = [broken`), 0o644)

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoad_InvalidSettle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[watch]\nsettle = \"soon\"\n"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable settle interval")
	}
}

func TestModeNames(t *testing.T) {
	cfg := Config{Modes: ModesConfig{Validate: true, Cleanup: true}}
	if got := cfg.ModeNames(); got != "cleanup,validate" {
		t.Errorf("ModeNames = %q", got)
	}
	if !cfg.Rewrites() {
		t.Error("cleanup should count as a rewrite")
	}
	if (Config{Modes: ModesConfig{Validate: true}}).Rewrites() {
		t.Error("validate alone should not rewrite")
	}
}

func TestStateDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")
	if got := StateDir(); got != "/var/state/reqifclean" {
		t.Errorf("StateDir = %q", got)
	}
}

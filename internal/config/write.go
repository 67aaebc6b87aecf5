package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the reqifclean config directory path.
// Uses $XDG_CONFIG_HOME/reqifclean if set, otherwise ~/.config/reqifclean.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// WriteDefault writes a default config.toml reading from inputDir and
// writing to outputDir. Returns the config file path. Skips if config.toml
// already exists.
func WriteDefault(inputDir, outputDir string) (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	def := DefaultConfig()
	content := fmt.Sprintf(`input_dir = %q
output_dir = %q
halt_on_error = false

[modes]
cleanup = false
identifier = false
validate = false
debug = false

[policy]
foreign_prefix = %q

[schema]
dir = %q
root = %q
allow_missing_imports = false

[backup]
enabled = false
dir = %q

[ledger]
enabled = false
path = %q

[watch]
settle = %q
`, CompressHome(inputDir), CompressHome(outputDir), def.Policy.ForeignPrefix,
		def.Schema.Dir, def.Schema.Root, def.Backup.Dir, def.Ledger.Path, def.Watch.Settle)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}

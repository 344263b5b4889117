package gamerun

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"grfbuild/internal/diag"
)

// ConfigFile is the side file kept in the build directory.
const ConfigFile = "build.json"

// Config is the persisted runner configuration.
type Config struct {
	NewGRFDir  string `json:"newgrf_dir"`
	Executable string `json:"executable"`
}

// ConfigPath returns where the config lives for buildDir.
func ConfigPath(buildDir string) string {
	return filepath.Join(buildDir, ConfigFile)
}

// LoadConfig reads the config at path. It returns nil without error when the
// file does not exist, and a RunnerConfigInvalid error when it cannot be
// decoded or lacks a key.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, diag.Wrap(diag.ReadFailed, path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, diag.Errorf(diag.RunnerConfigInvalid, path, "the config file is invalid: %v", err)
	}
	var cfg Config
	fields := []struct {
		key string
		dst *string
	}{
		{"newgrf_dir", &cfg.NewGRFDir},
		{"executable", &cfg.Executable},
	}
	for _, f := range fields {
		key, dst := f.key, f.dst
		v, ok := raw[key]
		if !ok {
			return nil, diag.Errorf(diag.RunnerConfigInvalid, path, "the config file is missing %q", key)
		}
		if err := json.Unmarshal(v, dst); err != nil || strings.TrimSpace(*dst) == "" {
			return nil, diag.Errorf(diag.RunnerConfigInvalid, path, "the config file has an invalid %q", key)
		}
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path, creating the parent directory.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return diag.Wrap(diag.WriteFailed, path, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return diag.Wrap(diag.WriteFailed, path, err)
	}
	return nil
}

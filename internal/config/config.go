// Package config loads and saves user preferences from a JSON file in a
// project-local dot directory, falling back to the home directory.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"ctxlab/internal/engine"
)

// Config holds user preferences.
type Config struct {
	APIKey    string `json:"api_key"`
	Model     string `json:"model"`
	LogDir    string `json:"log_dir"`
	SkillsDir string `json:"skills_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Model:     engine.DefaultModel,
		LogDir:    "logs",
		SkillsDir: "skills",
	}
}

// Dir returns the directory where config is stored: a project-local
// .ctxlab directory when present or creatable, otherwise ~/.ctxlab.
func Dir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".ctxlab")
		if stat, err := os.Stat(localDir); (err == nil && stat.IsDir()) || os.IsNotExist(err) {
			return localDir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ctxlab"), nil
}

// File returns the full path to the config file.
func File() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk. A missing file yields the
// defaults. The GEMINI_API_KEY environment variable overrides the
// stored API key either way.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := File()
	if err != nil {
		return applyEnv(cfg), err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return applyEnv(cfg), nil
	}
	if err != nil {
		return applyEnv(cfg), err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return applyEnv(DefaultConfig()), err
	}

	if cfg.Model == "" {
		cfg.Model = engine.DefaultModel
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	if cfg.SkillsDir == "" {
		cfg.SkillsDir = "skills"
	}
	return applyEnv(cfg), nil
}

// Save writes the configuration to disk.
func Save(cfg Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path, err := File()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func applyEnv(cfg Config) Config {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	return cfg
}

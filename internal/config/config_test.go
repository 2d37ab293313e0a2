package config

import (
	"os"
	"path/filepath"
	"testing"

	"ctxlab/internal/engine"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != engine.DefaultModel || cfg.LogDir != "logs" || cfg.SkillsDir != "skills" {
		t.Fatalf("defaults=%+v", cfg)
	}
	if cfg.APIKey != "" {
		t.Fatalf("no key anywhere, got %q", cfg.APIKey)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	saved := Config{APIKey: "stored-key", Model: "custom-model", LogDir: "sessions", SkillsDir: "travel-skills"}
	if err := Save(saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != saved {
		t.Fatalf("got %+v, want %+v", cfg, saved)
	}

	// The config file holds a credential; it must not be world-readable.
	path, err := File()
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config perms=%v, want 0600", info.Mode().Perm())
	}
}

func TestLoadBackfillsEmptyFields(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	if err := Save(Config{APIKey: "k"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != engine.DefaultModel || cfg.LogDir != "logs" || cfg.SkillsDir != "skills" {
		t.Fatalf("empty fields not backfilled: %+v", cfg)
	}
}

func TestEnvOverridesStoredKey(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Save(Config{APIKey: "stored-key"}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("APIKey=%q, want the environment to win", cfg.APIKey)
	}
}

func TestDirPrefersProjectLocal(t *testing.T) {
	t.Chdir(t.TempDir())
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if got != filepath.Join(cwd, ".ctxlab") {
		t.Fatalf("Dir=%q, want project-local .ctxlab", got)
	}
}

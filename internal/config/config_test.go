package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(claudeAPIKeyEnv, "")
	t.Setenv(unsplashKeyEnv, "")
	t.Setenv(databasePathEnv, "")

	cfg := Load()

	if cfg.Pipeline.OracleBudget != 25 {
		t.Fatalf("unexpected default oracle budget: %d", cfg.Pipeline.OracleBudget)
	}
	if cfg.Pipeline.DefaultMinScore != 6.0 || cfg.Pipeline.DefaultMaxArticles != 6 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if len(cfg.Seeds.Sources) == 0 || len(cfg.Seeds.Keywords) == 0 {
		t.Fatal("default seeds missing")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
database:
  path: /tmp/from-file.db
claude:
  judgeModel: judge-x
pipeline:
  oracleBudget: 10
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(claudeAPIKeyEnv, "env-key")
	t.Setenv(databasePathEnv, "/tmp/from-env.db")
	t.Setenv(unsplashKeyEnv, "")

	cfg := Load()

	if cfg.Claude.JudgeModel != "judge-x" {
		t.Fatalf("file override lost: %q", cfg.Claude.JudgeModel)
	}
	if cfg.Pipeline.OracleBudget != 10 {
		t.Fatalf("file override lost: %d", cfg.Pipeline.OracleBudget)
	}
	// Environment wins over the file.
	if cfg.Database.Path != "/tmp/from-env.db" {
		t.Fatalf("env override lost: %q", cfg.Database.Path)
	}
	if cfg.Claude.APIKey != "env-key" {
		t.Fatalf("env api key lost: %q", cfg.Claude.APIKey)
	}
	// Untouched values keep their defaults.
	if cfg.Claude.WriteModel == "" || cfg.Pipeline.DefaultMaxArticles != 6 {
		t.Fatalf("defaults lost after merge: %+v", cfg)
	}
}

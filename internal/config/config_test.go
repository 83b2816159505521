package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"go-wod-trmnl/internal/config"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	f := filepath.Join(dir, "c.yaml")
	_ = os.WriteFile(f, []byte("TRMNL_WEBHOOK_URL: https://hooks.example.test/x\nRETRY: -1\n"), 0o644)
	c, err := config.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.CSVFile != "crossfit_workouts.csv" || c.BaseURL != "https://www.crossfit.com" {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.Retry != 2 || c.TimeoutSec != 25 {
		t.Fatalf("retry/timeout defaults: %d %d", c.Retry, c.TimeoutSec)
	}
	if c.LogFormat == "" || c.LogLocale == "" || c.LogColor == "" {
		t.Fatalf("log defaults missing")
	}

	_ = os.WriteFile(f, []byte("BASE_URL: ftp://nope\n"), 0o644)
	if _, err := config.Load(f); err == nil {
		t.Fatalf("expect error for non-http BASE_URL")
	}
	if _, err := config.Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expect error for missing explicit config file")
	}
}

func TestConfig_EnvOverridesAndDotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	_ = os.WriteFile(filepath.Join(dir, ".env"), []byte("CROSSFIT_CSV_FILE=from-dotenv.csv\nWOD_DB=wod.db\n"), 0o644)
	// godotenv 写入的变量由 t.Setenv 负责在结束后还原
	t.Setenv("CROSSFIT_CSV_FILE", "")
	t.Setenv("WOD_DB", "")
	_ = os.Unsetenv("CROSSFIT_CSV_FILE")
	_ = os.Unsetenv("WOD_DB")
	t.Setenv("TRMNL_WEBHOOK_URL", "https://hooks.example.test/abc")
	t.Setenv("OVERWRITE_CSV", "TRUE")
	t.Setenv("WORKOUT_DATE", "2025-01-02")
	t.Setenv("WOD_BASE_URL", "https://example.test/")

	c, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.CSVFile != "from-dotenv.csv" || c.Database.DSN != "wod.db" {
		t.Fatalf(".env not applied: %+v", c)
	}
	if !c.Overwrite || c.WorkoutDate != "2025-01-02" || c.WebhookURL != "https://hooks.example.test/abc" {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.BaseURL != "https://example.test" {
		t.Fatalf("base url not trimmed: %q", c.BaseURL)
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{"OVERWRITE_CSV": "false", "WOD_RETRY": "3", "LOG_LEVEL": "debug"}
	c := config.Config{Overwrite: true}
	c.ApplyEnv(func(k string) string { return env[k] })
	if c.Overwrite || c.Retry != 3 || c.LogLevel != "debug" {
		t.Fatalf("apply env: %+v", c)
	}
}

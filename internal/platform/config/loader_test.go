package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
  log_file: "test.log"
upload:
  max_file_size: 1048576
  allowed_formats: ["png", "jpg"]
prediction:
  force_tier: "none"
cache:
  enabled: false
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	res, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %s", cfg.Log.Level)
	}
	if cfg.Upload.MaxFileSize != 1048576 {
		t.Errorf("expected max file size 1048576, got %d", cfg.Upload.MaxFileSize)
	}
	if len(cfg.Upload.AllowedFormats) != 2 {
		t.Errorf("expected 2 allowed formats, got %v", cfg.Upload.AllowedFormats)
	}
	if cfg.Prediction.ForceTier != "none" {
		t.Errorf("expected forced tier none, got %s", cfg.Prediction.ForceTier)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled")
	}
	if res.Path != configFile {
		t.Errorf("expected path %s, got %s", configFile, res.Path)
	}
}

func TestLoader_LoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	res, err := NewLoader().WithDotEnv(false).WithPath(missing).Load()
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if res.Path != "" {
		t.Errorf("expected empty origin path, got %s", res.Path)
	}

	def := DefaultConfig()
	if res.Config.Server.Port != def.Server.Port {
		t.Errorf("expected default port %d, got %d", def.Server.Port, res.Config.Server.Port)
	}
	if res.Config.Upload.MaxFileSize != def.Upload.MaxFileSize {
		t.Errorf("expected default max file size %d, got %d",
			def.Upload.MaxFileSize, res.Config.Upload.MaxFileSize)
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("PLANTDOC_PORT", "7070")
	t.Setenv("PLANTDOC_FORCE_TIER", "image_only")
	t.Setenv("PLANTDOC_REDIS_ADDR", "localhost:6380")

	res, err := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cfg := res.Config

	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Prediction.ForceTier != "image_only" {
		t.Errorf("expected forced tier image_only, got %s", cfg.Prediction.ForceTier)
	}
	if cfg.Cache.Redis == nil || cfg.Cache.Redis.Addr != "localhost:6380" {
		t.Errorf("expected redis addr override, got %+v", cfg.Cache.Redis)
	}
}

func TestLoader_InvalidYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("server: [broken"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load(); err == nil {
		t.Fatal("expected parse error for invalid yaml")
	}
}

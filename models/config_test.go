package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	defaults := DefaultConfig()
	if *config != *defaults {
		t.Errorf("config = %+v, want defaults %+v", config, defaults)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
output_dir: /tmp/pdfs
workers: 4
timeout_seconds: 60
bypass: true
related: all
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.OutputDir != "/tmp/pdfs" {
		t.Errorf("output dir = %q", config.OutputDir)
	}
	if config.Workers != 4 {
		t.Errorf("workers = %d, want 4", config.Workers)
	}
	if config.Timeout() != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", config.Timeout())
	}
	if !config.Bypass {
		t.Error("bypass not set")
	}
	if config.Related != RelatedAll {
		t.Errorf("related = %q, want all", config.Related)
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	path := writeConfig(t, `
workers: -2
timeout_seconds: 0
related: sometimes
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Workers != DefaultConfig().Workers {
		t.Errorf("workers = %d, want default", config.Workers)
	}
	if config.TimeoutSeconds != DefaultConfig().TimeoutSeconds {
		t.Errorf("timeout = %d, want default", config.TimeoutSeconds)
	}
	if config.Related != RelatedAsk {
		t.Errorf("related = %q, want ask fallback", config.Related)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "workers: [not a number")
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() succeeded on malformed YAML")
	}
}

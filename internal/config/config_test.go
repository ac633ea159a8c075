package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Fatalf("expected default listen address, got %q", cfg.Listen)
	}
	if cfg.EpochSeconds != 60 {
		t.Fatalf("expected default epoch_seconds 60, got %d", cfg.EpochSeconds)
	}
	if cfg.LastEpoch != 255 {
		t.Fatalf("expected default last_epoch 255, got %d", cfg.LastEpoch)
	}
	if cfg.Logging.Level != "INFO" || cfg.Logging.Format != "text" {
		t.Fatalf("expected default logging INFO/text, got %+v", cfg.Logging)
	}
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("STAR_LISTEN", "0.0.0.0:9999")
	t.Setenv("STAR_EPOCH_SECONDS", "5")
	t.Setenv("STAR_FIRST_EPOCH", "12")
	t.Setenv("STAR_LAST_EPOCH", "24")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9999" {
		t.Fatalf("expected STAR_LISTEN override, got %q", cfg.Listen)
	}
	if cfg.EpochSeconds != 5 {
		t.Fatalf("expected STAR_EPOCH_SECONDS override, got %d", cfg.EpochSeconds)
	}
	if cfg.FirstEpoch != 12 || cfg.LastEpoch != 24 {
		t.Fatalf("expected epoch range [12,24], got [%d,%d]", cfg.FirstEpoch, cfg.LastEpoch)
	}
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "listen: \"10.0.0.1:7070\"\nepoch_seconds: 30\nfirst_epoch: 1\nlast_epoch: 5\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "10.0.0.1:7070" {
		t.Fatalf("expected listen from file, got %q", cfg.Listen)
	}
	if cfg.FirstEpoch != 1 || cfg.LastEpoch != 5 {
		t.Fatalf("expected epoch range [1,5] from file, got [%d,%d]", cfg.FirstEpoch, cfg.LastEpoch)
	}
}

func TestValidate_RejectsInvertedEpochRange(t *testing.T) {
	cfg := &Config{
		Listen:       "127.0.0.1:8080",
		EpochSeconds: 1,
		FirstEpoch:   10,
		LastEpoch:    5,
		Logging:      LoggingConfig{Level: "INFO", Format: "text"},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for first_epoch > last_epoch")
	}
}

func TestValidate_RejectsZeroEpochSeconds(t *testing.T) {
	cfg := &Config{
		Listen:       "127.0.0.1:8080",
		EpochSeconds: 0,
		FirstEpoch:   0,
		LastEpoch:    5,
		Logging:      LoggingConfig{Level: "INFO", Format: "text"},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for epoch_seconds == 0")
	}
}

func TestValidate_RejectsBadLogFormat(t *testing.T) {
	cfg := &Config{
		Listen:       "127.0.0.1:8080",
		EpochSeconds: 1,
		FirstEpoch:   0,
		LastEpoch:    5,
		Logging:      LoggingConfig{Level: "INFO", Format: "xml"},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for an unsupported log format")
	}
}

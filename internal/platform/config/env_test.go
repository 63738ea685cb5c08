package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Model string `env:"INDEXSHELL_TEST_MODEL" envDefault:"gemini-1.5-pro"`
	Port  int    `env:"INDEXSHELL_TEST_PORT"  envDefault:"8081"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Model != "gemini-1.5-pro" {
		t.Fatalf("model = %q, want gemini-1.5-pro", cfg.Model)
	}
	if cfg.Port != 8081 {
		t.Fatalf("port = %d, want 8081", cfg.Port)
	}
}

func TestParseEnvOverride(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("INDEXSHELL_TEST_MODEL", "gemini-2.0-flash")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Fatalf("model = %q, want gemini-2.0-flash", cfg.Model)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("INDEXSHELL_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

package indexshell

import (
	"flag"
	"os"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	// t.Setenv records the restore; Unsetenv makes envDefault apply.
	t.Setenv("INDEXSHELL_TRANSPORT", "")
	t.Setenv("INDEXSHELL_HTTP_ADDR", "")
	os.Unsetenv("INDEXSHELL_TRANSPORT")
	os.Unsetenv("INDEXSHELL_HTTP_ADDR")

	fs := flag.NewFlagSet("indexshell", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("INDEXSHELL_TRANSPORT", "http")
	t.Setenv("INDEXSHELL_HTTP_ADDR", "env-http")

	fs := flag.NewFlagSet("indexshell", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected env transport http, got %q", cfg.Transport)
	}
	if cfg.HTTPAddr != "env-http" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
}

func TestParseConfigFlagOverrides(t *testing.T) {
	t.Setenv("INDEXSHELL_TRANSPORT", "stdio")
	t.Setenv("INDEXSHELL_HTTP_ADDR", "env-http")

	fs := flag.NewFlagSet("indexshell", flag.ContinueOnError)
	args := []string{"-transport", "http", "-http-addr", "flag-http"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected flag transport http, got %q", cfg.Transport)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
}

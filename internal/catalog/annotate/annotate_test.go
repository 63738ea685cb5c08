package annotate

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestParseAnnotation(t *testing.T) {
	body := `{"tag-array": ["docker", "process", "list"], "formatted-command": "docker ps", "summary": "Lists running containers."}`

	got, err := ParseAnnotation(body)
	if err != nil {
		t.Fatalf("parse annotation: %v", err)
	}
	if got.CommandText != "docker ps" {
		t.Fatalf("command text = %q, want docker ps", got.CommandText)
	}
	if !reflect.DeepEqual(got.Tags, []string{"docker", "process", "list"}) {
		t.Fatalf("tags = %v, want [docker process list]", got.Tags)
	}
	if got.Summary != "Lists running containers." {
		t.Fatalf("summary = %q, want Lists running containers.", got.Summary)
	}
}

func TestParseAnnotationStripsFences(t *testing.T) {
	body := "```json\n{\"tag-array\": [\"git\"], \"formatted-command\": \"git status\", \"summary\": \"s\"}\n```"

	got, err := ParseAnnotation(body)
	if err != nil {
		t.Fatalf("parse fenced annotation: %v", err)
	}
	if got.CommandText != "git status" {
		t.Fatalf("command text = %q, want git status", got.CommandText)
	}
}

func TestParseAnnotationRejectionSentinel(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "sentinel command",
			body: `{"tag-array": ["command-error"], "formatted-command": "command-error", "summary": "Command not recognized."}`,
		},
		{
			name: "sentinel tag only",
			body: `{"tag-array": ["command-error"], "formatted-command": "ducker ps", "summary": "typo"}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAnnotation(tc.body)
			if !errors.Is(err, ErrNotACommand) {
				t.Fatalf("expected ErrNotACommand, got %v", err)
			}
		})
	}
}

func TestParseAnnotationUnusableResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: ""},
		{name: "not json", body: "sorry, I cannot help with that"},
		{name: "missing command", body: `{"tag-array": ["docker"], "summary": "s"}`},
		{name: "missing tags", body: `{"formatted-command": "docker ps", "summary": "s"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAnnotation(tc.body)
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "gemini-1.5-pro"); err == nil {
		t.Fatal("expected missing api key error")
	}
}

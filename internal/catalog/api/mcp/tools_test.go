package mcpapi

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/louisbranch/indexshell/internal/catalog/engine"
	"github.com/louisbranch/indexshell/internal/catalog/storage"
	"github.com/louisbranch/indexshell/internal/platform/requestctx"
)

type fakeEngine struct {
	submitIdentity string
	submitCommand  string
	submitTags     []string
	submitSummary  string
	submitResult   engine.SubmitResult
	submitErr      error

	searchIdentity string
	searchQuery    string
	searchEntries  []storage.OverlayEntry
	searchErr      error
}

func (e *fakeEngine) Submit(_ context.Context, identity, rawCommand string, customTags []string, customSummary string) (engine.SubmitResult, error) {
	e.submitIdentity = identity
	e.submitCommand = rawCommand
	e.submitTags = customTags
	e.submitSummary = customSummary
	return e.submitResult, e.submitErr
}

func (e *fakeEngine) Search(_ context.Context, identity, rawQuery string) ([]storage.OverlayEntry, error) {
	e.searchIdentity = identity
	e.searchQuery = rawQuery
	return e.searchEntries, e.searchErr
}

func TestResolveIdentity(t *testing.T) {
	t.Parallel()

	resolve := ResolveIdentity("fallback@x.com")

	identity, err := resolve(requestctx.WithIdentity(context.Background(), "a@x.com"))
	if err != nil {
		t.Fatalf("resolve with context identity: %v", err)
	}
	if identity != "a@x.com" {
		t.Fatalf("identity = %q, want a@x.com", identity)
	}

	identity, err = resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve with fallback: %v", err)
	}
	if identity != "fallback@x.com" {
		t.Fatalf("identity = %q, want fallback@x.com", identity)
	}

	if _, err := ResolveIdentity("")(context.Background()); err == nil {
		t.Fatal("expected error when no identity is available")
	}
}

func TestSnippetSubmitHandler(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{submitResult: engine.SubmitResult{
		SnippetID: "snip-1",
		Entry: storage.OverlayEntry{
			SnippetID:   "snip-1",
			CommandText: "docker ps",
			Tags:        []string{"daily-use", "docker"},
			Summary:     "Lists running containers.",
		},
		CanonicalCreated: true,
		OverlayCreated:   true,
	}}
	handler := SnippetSubmitHandler(eng, ResolveIdentity("a@x.com"))

	_, result, err := handler(context.Background(), nil, SubmitInput{
		Command: "docker   ps",
		Tags:    []string{"daily-use"},
		Summary: "",
	})
	if err != nil {
		t.Fatalf("handle submit: %v", err)
	}
	if eng.submitIdentity != "a@x.com" {
		t.Fatalf("identity = %q, want a@x.com", eng.submitIdentity)
	}
	if eng.submitCommand != "docker   ps" {
		t.Fatalf("command = %q, want raw input passed through", eng.submitCommand)
	}
	if result.SnippetID != "snip-1" || !result.CanonicalCreated || !result.OverlayCreated {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !reflect.DeepEqual(result.Tags, []string{"daily-use", "docker"}) {
		t.Fatalf("tags = %v", result.Tags)
	}
}

func TestSnippetSubmitHandlerEngineError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("annotation failed")
	eng := &fakeEngine{submitErr: wantErr}
	handler := SnippetSubmitHandler(eng, ResolveIdentity("a@x.com"))

	_, _, err := handler(context.Background(), nil, SubmitInput{Command: "docker ps"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestSnippetSearchHandler(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{searchEntries: []storage.OverlayEntry{
		{SnippetID: "snip-1", CommandText: "docker ps", Tags: []string{"docker"}, Summary: "foo"},
		{SnippetID: "snip-2", CommandText: "docker images", Tags: []string{"docker"}, Summary: "bar"},
	}}
	handler := SnippetSearchHandler(eng, ResolveIdentity("b@x.com"))

	_, result, err := handler(context.Background(), nil, SearchInput{Query: "docker"})
	if err != nil {
		t.Fatalf("handle search: %v", err)
	}
	if eng.searchIdentity != "b@x.com" || eng.searchQuery != "docker" {
		t.Fatalf("engine called with identity %q query %q", eng.searchIdentity, eng.searchQuery)
	}
	if len(result.Snippets) != 2 {
		t.Fatalf("snippets = %d, want 2", len(result.Snippets))
	}
	if result.Snippets[0].SnippetID != "snip-1" || result.Snippets[0].Summary != "foo" {
		t.Fatalf("first snippet = %+v", result.Snippets[0])
	}
}

func TestSnippetSearchHandlerNoIdentity(t *testing.T) {
	t.Parallel()

	handler := SnippetSearchHandler(&fakeEngine{}, ResolveIdentity(""))

	if _, _, err := handler(context.Background(), nil, SearchInput{Query: "docker"}); err == nil {
		t.Fatal("expected error when no identity is available")
	}
}

// Package mcpapi exposes the snippet catalog operations as MCP tools.
package mcpapi

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/indexshell/internal/catalog/engine"
	"github.com/louisbranch/indexshell/internal/catalog/storage"
	"github.com/louisbranch/indexshell/internal/platform/requestctx"
)

// Engine is the catalog surface the tool handlers call.
type Engine interface {
	Submit(ctx context.Context, identity, rawCommand string, customTags []string, customSummary string) (engine.SubmitResult, error)
	Search(ctx context.Context, identity, rawQuery string) ([]storage.OverlayEntry, error)
}

// IdentityResolver returns the caller identity for a tool invocation.
type IdentityResolver func(ctx context.Context) (string, error)

// ResolveIdentity resolves the caller identity from request context, falling
// back to the fixed identity configured for single-user stdio mode.
func ResolveIdentity(fallback string) IdentityResolver {
	return func(ctx context.Context) (string, error) {
		if identity := requestctx.IdentityFromContext(ctx); identity != "" {
			return identity, nil
		}
		if fallback != "" {
			return fallback, nil
		}
		return "", fmt.Errorf("no caller identity on request")
	}
}

// SubmitInput represents the MCP tool input for snippet submission.
type SubmitInput struct {
	Command string   `json:"command" jsonschema:"raw shell command to catalog"`
	Tags    []string `json:"tags,omitempty" jsonschema:"optional custom tags, kept ahead of generated tags in input order"`
	Summary string   `json:"summary,omitempty" jsonschema:"optional custom summary overriding the generated one"`
}

// SubmitResult represents the MCP tool output for snippet submission.
type SubmitResult struct {
	SnippetID        string   `json:"snippet_id" jsonschema:"shared snippet identifier"`
	Command          string   `json:"command" jsonschema:"formatted command text"`
	Tags             []string `json:"tags" jsonschema:"merged tags for the caller's entry"`
	Summary          string   `json:"summary" jsonschema:"merged summary for the caller's entry"`
	CanonicalCreated bool     `json:"canonical_created" jsonschema:"true when this submission published the shared record"`
	OverlayCreated   bool     `json:"overlay_created" jsonschema:"true when this submission created the caller's entry"`
}

// SearchInput represents the MCP tool input for snippet search.
type SearchInput struct {
	Query string `json:"query" jsonschema:"whitespace-separated search terms"`
}

// SnippetView is one merged snippet in a search result.
type SnippetView struct {
	SnippetID string   `json:"snippet_id" jsonschema:"shared snippet identifier"`
	Command   string   `json:"command" jsonschema:"command text"`
	Tags      []string `json:"tags" jsonschema:"tags, caller customizations first"`
	Summary   string   `json:"summary" jsonschema:"summary, caller customization when present"`
}

// SearchResult represents the MCP tool output for snippet search.
type SearchResult struct {
	Snippets []SnippetView `json:"snippets" jsonschema:"matching snippets, caller's entries first"`
}

// SnippetSubmitTool defines the MCP tool schema for snippet submission.
func SnippetSubmitTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "snippet_submit",
		Description: "Catalogs a shell command with generated tags and summary, merged with optional custom tags and summary",
	}
}

// SnippetSearchTool defines the MCP tool schema for snippet search.
func SnippetSearchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "snippet_search",
		Description: "Searches the caller's snippets and the shared catalog, caller customizations taking precedence",
	}
}

// SnippetSubmitHandler handles snippet_submit tool calls.
func SnippetSubmitHandler(eng Engine, resolve IdentityResolver) mcp.ToolHandlerFor[SubmitInput, SubmitResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SubmitInput) (*mcp.CallToolResult, SubmitResult, error) {
		identity, err := resolve(ctx)
		if err != nil {
			return nil, SubmitResult{}, err
		}
		result, err := eng.Submit(ctx, identity, input.Command, input.Tags, input.Summary)
		if err != nil {
			return nil, SubmitResult{}, err
		}
		return nil, SubmitResult{
			SnippetID:        result.SnippetID,
			Command:          result.Entry.CommandText,
			Tags:             result.Entry.Tags,
			Summary:          result.Entry.Summary,
			CanonicalCreated: result.CanonicalCreated,
			OverlayCreated:   result.OverlayCreated,
		}, nil
	}
}

// SnippetSearchHandler handles snippet_search tool calls.
func SnippetSearchHandler(eng Engine, resolve IdentityResolver) mcp.ToolHandlerFor[SearchInput, SearchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchResult, error) {
		identity, err := resolve(ctx)
		if err != nil {
			return nil, SearchResult{}, err
		}
		entries, err := eng.Search(ctx, identity, input.Query)
		if err != nil {
			return nil, SearchResult{}, err
		}
		snippets := make([]SnippetView, 0, len(entries))
		for _, entry := range entries {
			snippets = append(snippets, SnippetView{
				SnippetID: entry.SnippetID,
				Command:   entry.CommandText,
				Tags:      entry.Tags,
				Summary:   entry.Summary,
			})
		}
		return nil, SearchResult{Snippets: snippets}, nil
	}
}

// Register adds the catalog tools to an MCP server.
func Register(server *mcp.Server, eng Engine, resolve IdentityResolver) {
	mcp.AddTool(server, SnippetSubmitTool(), SnippetSubmitHandler(eng, resolve))
	mcp.AddTool(server, SnippetSearchTool(), SnippetSearchHandler(eng, resolve))
}

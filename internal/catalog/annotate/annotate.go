// Package annotate invokes the external annotation generator for raw shell
// commands and isolates its failure modes from the reconciliation engine.
package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotACommand indicates the generator judged the input to be gibberish
// rather than a shell command. The engine must treat this as a failed
// submission, never as a zero-tag snippet.
var ErrNotACommand = errors.New("input not recognized as a command")

// ErrUnavailable indicates the generator could not be reached or returned an
// unusable response.
var ErrUnavailable = errors.New("annotation generator unavailable")

// rejectedSentinel is the tag and formatted-command value the generator
// returns for input it does not recognize as a command.
const rejectedSentinel = "command-error"

// Annotation is one generated annotation for a raw command.
type Annotation struct {
	// CommandText is the generator's formatted rendition of the command,
	// with placeholders substituted for sensitive or situational values.
	CommandText string
	// Tags is ordered broad to specific; the order is meaningful for search.
	Tags []string
	// Summary is free text describing practical use of the command.
	Summary string
}

// Annotator generates annotations for raw commands.
type Annotator interface {
	Annotate(ctx context.Context, rawCommand string) (Annotation, error)
}

// wireAnnotation matches the generator's JSON response shape.
type wireAnnotation struct {
	Tags        []string `json:"tag-array"`
	CommandText string   `json:"formatted-command"`
	Summary     string   `json:"summary"`
}

// ParseAnnotation decodes a generator response body into an Annotation. The
// rejection sentinel maps to ErrNotACommand; malformed or incomplete payloads
// map to ErrUnavailable.
func ParseAnnotation(body string) (Annotation, error) {
	trimmed := trimFences(body)
	if trimmed == "" {
		return Annotation{}, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	var wire wireAnnotation
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		return Annotation{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	if isRejected(wire) {
		return Annotation{}, ErrNotACommand
	}
	if strings.TrimSpace(wire.CommandText) == "" {
		return Annotation{}, fmt.Errorf("%w: response missing formatted command", ErrUnavailable)
	}
	if len(wire.Tags) == 0 {
		return Annotation{}, fmt.Errorf("%w: response missing tags", ErrUnavailable)
	}

	return Annotation{
		CommandText: strings.TrimSpace(wire.CommandText),
		Tags:        wire.Tags,
		Summary:     wire.Summary,
	}, nil
}

func isRejected(wire wireAnnotation) bool {
	if strings.TrimSpace(wire.CommandText) == rejectedSentinel {
		return true
	}
	return len(wire.Tags) == 1 && wire.Tags[0] == rejectedSentinel
}

// trimFences strips a markdown code fence the generator sometimes wraps
// around JSON payloads.
func trimFences(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/indexshell/internal/platform/config"
	"github.com/louisbranch/indexshell/internal/platform/timeouts"
	"google.golang.org/genai"
)

// systemInstruction steers the model to produce the annotation JSON shape.
// Tag ordering (broad first, specific last) and placeholder substitution for
// sensitive values are part of the contract; gibberish input must come back
// as the command-error sentinel rather than invented tags.
const systemInstruction = `The input is a shell command snippet. Generate a JSON object with attributes: "tag-array" (array of strings), "formatted-command" (string) and "summary" (string).

The tag-array lists tags related to the command, ordered broad to specific: for "docker run -dit --name web2 --network webServers nginx bash" a good tag-array is ["docker", "container", "run-image", "custom-network", "network-definition"]. Tags are used for searching; include the terms a user would plausibly search with.

The formatted-command reformats the input for general use: remove sensitive information and replace static values with placeholders, e.g. "docker run -d -p 3306:3306 -e MYSQL_ROOT_PASSWORD=db_pass1234 --name mysqlDB mysql:latest" becomes "docker run -d -p 3306:3306 -e MYSQL_ROOT_PASSWORD=<password> --name <container-name> mysql:latest".

The summary starts with a one-paragraph synopsis aimed at practical use, followed by as much description as that use calls for.

If the input is gibberish rather than a command (judge typos leniently), respond with {"tag-array": ["command-error"], "formatted-command": "command-error", "summary": "Command not recognized."}.`

// geminiEnv holds annotator configuration read from the environment.
type geminiEnv struct {
	APIKey string `env:"INDEXSHELL_GEMINI_API_KEY"`
	Model  string `env:"INDEXSHELL_ANNOTATOR_MODEL" envDefault:"gemini-1.5-pro"`
}

// Gemini generates annotations with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGeminiFromEnv creates a Gemini annotator configured from the
// environment. INDEXSHELL_GEMINI_API_KEY is required.
func NewGeminiFromEnv(ctx context.Context) (*Gemini, error) {
	var cfg geminiEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return NewGemini(ctx, cfg.APIKey, cfg.Model)
}

// NewGemini creates a Gemini annotator with an explicit key and model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-1.5-pro"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Annotate generates an annotation for rawCommand. Transport failures and
// unusable responses surface as ErrUnavailable; the generator's rejection
// sentinel surfaces as ErrNotACommand.
func (g *Gemini) Annotate(ctx context.Context, rawCommand string) (Annotation, error) {
	if g == nil || g.client == nil {
		return Annotation{}, fmt.Errorf("%w: annotator is not configured", ErrUnavailable)
	}
	if strings.TrimSpace(rawCommand) == "" {
		return Annotation{}, fmt.Errorf("raw command is required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Annotate)
	defer cancel()

	response, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(rawCommand),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](1),
			TopP:              genai.Ptr[float32](0.95),
		},
	)
	if err != nil {
		return Annotation{}, fmt.Errorf("%w: generate content: %v", ErrUnavailable, err)
	}

	return ParseAnnotation(response.Text())
}

var _ Annotator = (*Gemini)(nil)

package agents

import (
	"context"
	"log/slog"
	"strings"

	"clipmato/internal/logging"
	"clipmato/internal/services/llm"
	"clipmato/internal/stage"
)

// Completer is the chat interface the agents depend on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Agents implements the text collaborators of the pipeline over one Completer.
type Agents struct {
	llm    Completer
	logger *slog.Logger
}

// New returns agents backed by client.
func New(client Completer, logger *slog.Logger) *Agents {
	return &Agents{llm: client, logger: logging.NewComponentLogger(logger, "agents")}
}

type descriptionPayload struct {
	Short string `json:"short_description"`
	Long  string `json:"long_description"`
}

// Describe returns a one-sentence and a paragraph-length summary.
func (a *Agents) Describe(ctx context.Context, transcript string) (stage.DescriptionSet, error) {
	content, err := a.llm.CompleteJSON(ctx, descriptionPrompt, transcript)
	if err != nil {
		return stage.DescriptionSet{}, err
	}
	payload := decodeOr(ctx, a.logger, "descriptions", content, descriptionPayload{})
	return stage.DescriptionSet{
		Short: strings.TrimSpace(payload.Short),
		Long:  strings.TrimSpace(payload.Long),
	}, nil
}

type entityPayload struct {
	People    []string `json:"people"`
	Locations []string `json:"locations"`
}

// ExtractEntities lists the people and places named in transcript.
func (a *Agents) ExtractEntities(ctx context.Context, transcript string) (stage.EntitySet, error) {
	content, err := a.llm.CompleteJSON(ctx, entityPrompt, transcript)
	if err != nil {
		return stage.EntitySet{}, err
	}
	payload := decodeOr(ctx, a.logger, "entities", content, entityPayload{})
	return stage.EntitySet{
		People:    nonNil(payload.People),
		Locations: nonNil(payload.Locations),
	}, nil
}

// SuggestTitles proposes episode titles. A JSON array is preferred; plain
// line-separated output is accepted.
func (a *Agents) SuggestTitles(ctx context.Context, transcript string) ([]string, error) {
	content, err := a.llm.Complete(ctx, titlePrompt, transcript)
	if err != nil {
		return nil, err
	}
	return llm.ParseList(content), nil
}

// WriteScript returns show notes and interview questions.
func (a *Agents) WriteScript(ctx context.Context, transcript string) (string, error) {
	content, err := a.llm.Complete(ctx, scriptPrompt, transcript)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func decodeOr[T any](ctx context.Context, logger *slog.Logger, agent, content string, def T) T {
	value, err := llm.DecodeOr(content, def)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, logger), "model output unparseable; using default", "agent_output_invalid",
			logging.String("agent", agent),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the configured model supports JSON output"),
			logging.String(logging.FieldImpact, "stage output left empty"),
		)
	}
	return value
}

func nonNil(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"clipmato/internal/schedule"
	"clipmato/internal/services"
	"clipmato/internal/services/llm"
)

// Proposer asks the model for posting times. Any failure is returned so the
// planner can fall back to the deterministic schedule.
type Proposer struct {
	llm Completer
}

// NewProposer returns a schedule proposer backed by client.
func NewProposer(client Completer) *Proposer {
	return &Proposer{llm: client}
}

type episode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type scheduleRequest struct {
	Cadence  string    `json:"cadence"`
	NDays    *int      `json:"n_days"`
	Episodes []episode `json:"episodes"`
}

// Propose implements schedule.Proposer.
func (p *Proposer) Propose(ctx context.Context, req schedule.Request) (map[string]string, error) {
	body := scheduleRequest{Cadence: req.Cadence, Episodes: make([]episode, 0, len(req.Records))}
	if req.NDays > 0 {
		n := req.NDays
		body.NDays = &n
	}
	for _, record := range req.Records {
		body.Episodes = append(body.Episodes, episode{
			ID:          record.ID,
			Title:       record.Title(),
			Description: record.LongDescription,
		})
	}
	prompt, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode schedule prompt: %w", err)
	}
	content, err := p.llm.CompleteJSON(ctx, schedulePrompt, string(prompt))
	if err != nil {
		return nil, err
	}
	var proposal map[string]string
	if err := llm.DecodeLLMJSON(content, &proposal); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "propose schedule", "model reply is not an id to datetime object", err)
	}
	return proposal, nil
}

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clipmato/internal/fallback"
	"clipmato/internal/logging"
	"clipmato/internal/metadata"
	"clipmato/internal/services"
)

// Request describes one scheduling round.
type Request struct {
	Records []metadata.Record
	Cadence string
	NDays   int
}

// Proposer suggests posting times for every record in a request.
type Proposer interface {
	Propose(ctx context.Context, req Request) (map[string]string, error)
}

// Planner combines a Proposer with the deterministic fallback.
type Planner struct {
	plan        func(context.Context, Request) (map[string]string, error)
	publishHour int
	now         func() time.Time
}

// PlannerOption customizes a Planner.
type PlannerOption func(*Planner)

// WithClock overrides the time source used by the fallback.
func WithClock(now func() time.Time) PlannerOption {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPublishHour overrides the UTC hour used by the fallback.
func WithPublishHour(hour int) PlannerOption {
	return func(p *Planner) {
		p.publishHour = hour
	}
}

// NewPlanner returns a planner that tries proposer first. A nil proposer
// means every plan is computed deterministically.
func NewPlanner(proposer Proposer, logger *slog.Logger, opts ...PlannerOption) *Planner {
	p := &Planner{publishHour: DefaultPublishHour, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if proposer == nil {
		p.plan = p.deterministic
		return p
	}
	primary := func(ctx context.Context, req Request) (map[string]string, error) {
		proposal, err := proposer.Propose(ctx, req)
		if err != nil {
			return nil, err
		}
		return normalizeProposal(req, proposal)
	}
	p.plan = fallback.Wrap(logging.NewComponentLogger(logger, "scheduler"), "propose schedule", primary, p.deterministic)
	return p
}

func (p *Planner) deterministic(_ context.Context, req Request) (map[string]string, error) {
	return Compute(req.Records, req.Cadence, req.NDays, p.now(), p.publishHour), nil
}

// Plan returns a posting time for every record in req.
func (p *Planner) Plan(ctx context.Context, req Request) map[string]string {
	if len(req.Records) == 0 {
		return map[string]string{}
	}
	plan, err := p.plan(ctx, req)
	if err != nil {
		plan, _ = p.deterministic(ctx, req)
	}
	return plan
}

// normalizeProposal keeps only requested ids and requires each to carry a
// parseable timestamp, rewritten to RFC 3339 UTC.
func normalizeProposal(req Request, proposal map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(req.Records))
	for _, record := range req.Records {
		raw, ok := proposal[record.ID]
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "", "propose schedule", fmt.Sprintf("no slot for %s", record.ID), nil)
		}
		ts, err := parseTimestamp(raw)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "propose schedule", fmt.Sprintf("slot for %s", record.ID), err)
		}
		out[record.ID] = ts.UTC().Format(time.RFC3339)
	}
	return out, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

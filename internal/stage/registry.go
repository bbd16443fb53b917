package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"clipmato/internal/pipeline"
	"clipmato/internal/services"
)

// Collaborators bundles the implementations behind each stage. SilenceRemover
// is optional; the rest are required.
type Collaborators struct {
	Transcriber    Transcriber
	Describer      Describer
	Entities       EntityExtractor
	Titles         TitleSuggester
	Script         ScriptWriter
	Editor         AudioEditor
	SilenceRemover SilenceRemover
	Distributor    Distributor
}

// PlanOptions selects optional stages for one job.
type PlanOptions struct {
	RemoveSilence bool
}

// Registry maps stage names to fully wired steps.
type Registry struct {
	steps map[string]pipeline.Step
}

// order is the execution order of every known stage. Optional stages are
// dropped by Plan when not requested.
var order = []string{
	Transcribing,
	Descriptions,
	Entities,
	Titles,
	Script,
	Editing,
	RemoveSilence,
	Distribution,
}

// NewRegistry wires each collaborator into its step.
func NewRegistry(c Collaborators) (*Registry, error) {
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check(Transcribing, c.Transcriber != nil)
	check(Descriptions, c.Describer != nil)
	check(Entities, c.Entities != nil)
	check(Titles, c.Titles != nil)
	check(Script, c.Script != nil)
	check(Editing, c.Editor != nil)
	check(Distribution, c.Distributor != nil)
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "", "build stage registry",
			"missing collaborators: "+strings.Join(missing, ", "), nil)
	}

	steps := map[string]pipeline.Step{
		Transcribing: {
			Name:      Transcribing,
			Call:      pipeline.Unary(c.Transcriber.Transcribe),
			Inputs:    []string{KeyFilePath},
			Outputs:   []string{KeyTranscript},
			Offload:   true,
			Summarize: func(r any) string { return fmt.Sprintf("%d characters", len(r.(string))) },
		},
		Descriptions: {
			Name: Descriptions,
			Call: pipeline.Unary(func(ctx context.Context, transcript string) (pipeline.Tuple, error) {
				d, err := c.Describer.Describe(ctx, transcript)
				if err != nil {
					return nil, err
				}
				return pipeline.Tuple{d.Short, d.Long}, nil
			}),
			Inputs:  []string{KeyTranscript},
			Outputs: []string{KeyShortDescription, KeyLongDescription},
		},
		Entities: {
			Name: Entities,
			Call: pipeline.Unary(func(ctx context.Context, transcript string) (pipeline.Tuple, error) {
				e, err := c.Entities.ExtractEntities(ctx, transcript)
				if err != nil {
					return nil, err
				}
				return pipeline.Tuple{e.People, e.Locations}, nil
			}),
			Inputs:  []string{KeyTranscript},
			Outputs: []string{KeyPeople, KeyLocations},
			Summarize: func(r any) string {
				t := r.(pipeline.Tuple)
				return fmt.Sprintf("%d people, %d locations", len(t[0].([]string)), len(t[1].([]string)))
			},
		},
		Titles: {
			Name:      Titles,
			Call:      pipeline.Unary(c.Titles.SuggestTitles),
			Inputs:    []string{KeyTranscript},
			Outputs:   []string{KeyTitles},
			Summarize: func(r any) string { return fmt.Sprintf("%d titles", len(r.([]string))) },
		},
		Script: {
			Name:    Script,
			Call:    pipeline.Unary(c.Script.WriteScript),
			Inputs:  []string{KeyTranscript},
			Outputs: []string{KeyScript},
		},
		Editing: {
			Name:      Editing,
			Call:      pipeline.Unary(c.Editor.Edit),
			Inputs:    []string{KeyFilePath},
			Outputs:   []string{KeyEditedAudio},
			Offload:   true,
			Summarize: func(r any) string { return "output file: " + r.(string) },
		},
		Distribution: {
			Name:    Distribution,
			Call:    pipeline.Unary(c.Distributor.Distribute),
			Inputs:  []string{KeyEditedAudio},
			Outputs: []string{KeyDistribution},
			Summarize: func(r any) string {
				return fmt.Sprintf("%d bytes of result", len(r.(json.RawMessage)))
			},
		},
	}
	if c.SilenceRemover != nil {
		steps[RemoveSilence] = pipeline.Step{
			Name: RemoveSilence,
			Call: pipeline.Unary(func(ctx context.Context, path string) (pipeline.Tuple, error) {
				res, err := c.SilenceRemover.RemoveSilence(ctx, path)
				if err != nil {
					return nil, err
				}
				return pipeline.Tuple{res.OriginalSeconds, res.TrimmedSeconds, res.Path}, nil
			}),
			Inputs:  []string{KeyEditedAudio},
			Outputs: []string{KeyOriginalDuration, KeyTrimmedDuration, KeyEditedAudio},
			Offload: true,
			Summarize: func(r any) string {
				t := r.(pipeline.Tuple)
				return fmt.Sprintf("%.1fs -> %.1fs", t[0].(float64), t[1].(float64))
			},
		}
	}
	return &Registry{steps: steps}, nil
}

// ErrSilenceRemovalUnavailable is returned by Plan when silence removal is
// requested without a SilenceRemover.
var ErrSilenceRemovalUnavailable = errors.New("silence removal not configured")

// Plan returns the ordered steps for one job.
func (r *Registry) Plan(opts PlanOptions) ([]pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(order))
	for _, name := range order {
		if name == RemoveSilence && !opts.RemoveSilence {
			continue
		}
		step, ok := r.steps[name]
		if !ok {
			if name == RemoveSilence {
				return nil, services.Wrap(services.ErrConfiguration, RemoveSilence, "plan", "", ErrSilenceRemovalUnavailable)
			}
			return nil, fmt.Errorf("stage %s not registered", name)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Names lists the registered stages in execution order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(order))
	for _, name := range order {
		if _, ok := r.steps[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

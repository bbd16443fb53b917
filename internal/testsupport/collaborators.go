package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"clipmato/internal/stage"
)

// Collaborators is a scripted implementation of every stage contract. Calls
// are recorded by stage name; FailAt makes the named stage return Err.
type Collaborators struct {
	FailAt string
	Err    error

	mu    sync.Mutex
	calls []string
}

// NewCollaborators returns fakes that succeed at every stage.
func NewCollaborators() *Collaborators {
	return &Collaborators{}
}

// Stage returns the collaborator bundle backed by c.
func (c *Collaborators) Stage() stage.Collaborators {
	return stage.Collaborators{
		Transcriber:    c,
		Describer:      c,
		Entities:       c,
		Titles:         c,
		Script:         c,
		Editor:         c,
		SilenceRemover: c,
		Distributor:    c,
	}
}

// Calls returns the stages invoked so far in order.
func (c *Collaborators) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Collaborators) enter(name string) error {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.mu.Unlock()
	if c.FailAt == name {
		if c.Err != nil {
			return c.Err
		}
		return fmt.Errorf("%s failed", name)
	}
	return nil
}

func (c *Collaborators) Transcribe(_ context.Context, path string) (string, error) {
	if err := c.enter(stage.Transcribing); err != nil {
		return "", err
	}
	return "Alice and Bob walked through Paris talking about " + path, nil
}

func (c *Collaborators) Describe(_ context.Context, transcript string) (stage.DescriptionSet, error) {
	if err := c.enter(stage.Descriptions); err != nil {
		return stage.DescriptionSet{}, err
	}
	return stage.DescriptionSet{Short: "short summary", Long: "long summary of " + transcript}, nil
}

func (c *Collaborators) ExtractEntities(context.Context, string) (stage.EntitySet, error) {
	if err := c.enter(stage.Entities); err != nil {
		return stage.EntitySet{}, err
	}
	return stage.EntitySet{People: []string{"Alice", "Bob"}, Locations: []string{"Paris"}}, nil
}

func (c *Collaborators) SuggestTitles(context.Context, string) ([]string, error) {
	if err := c.enter(stage.Titles); err != nil {
		return nil, err
	}
	return []string{"A Walk in Paris", "Alice Meets Bob"}, nil
}

func (c *Collaborators) WriteScript(_ context.Context, transcript string) (string, error) {
	if err := c.enter(stage.Script); err != nil {
		return "", err
	}
	return "SCRIPT: " + transcript, nil
}

func (c *Collaborators) Edit(_ context.Context, path string) (string, error) {
	if err := c.enter(stage.Editing); err != nil {
		return "", err
	}
	return strings.TrimSuffix(path, ".mp3") + "_edited.mp3", nil
}

func (c *Collaborators) RemoveSilence(_ context.Context, path string) (stage.SilenceResult, error) {
	if err := c.enter(stage.RemoveSilence); err != nil {
		return stage.SilenceResult{}, err
	}
	return stage.SilenceResult{
		OriginalSeconds: 120,
		TrimmedSeconds:  95.5,
		Path:            strings.TrimSuffix(path, ".mp3") + "_trimmed.mp3",
	}, nil
}

func (c *Collaborators) Distribute(_ context.Context, path string) (json.RawMessage, error) {
	if err := c.enter(stage.Distribution); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"url": "file://" + path})
}

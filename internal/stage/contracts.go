package stage

import (
	"context"
	"encoding/json"
)

// DescriptionSet is the summarization result for a transcript.
type DescriptionSet struct {
	Short string `json:"short"`
	Long  string `json:"long"`
}

// EntitySet lists people and places mentioned in a transcript.
type EntitySet struct {
	People    []string `json:"people"`
	Locations []string `json:"locations"`
}

// SilenceResult describes a silence-trimmed copy of an audio file. Durations
// are in seconds.
type SilenceResult struct {
	OriginalSeconds float64
	TrimmedSeconds  float64
	Path            string
}

// Transcriber converts a media file into text. It fails when the file has no
// audio track or cannot be decoded.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Describer produces short and long descriptions of a transcript.
type Describer interface {
	Describe(ctx context.Context, transcript string) (DescriptionSet, error)
}

// EntityExtractor lists the people and locations in a transcript.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, transcript string) (EntitySet, error)
}

// TitleSuggester proposes episode titles for a transcript.
type TitleSuggester interface {
	SuggestTitles(ctx context.Context, transcript string) ([]string, error)
}

// ScriptWriter produces a narration script from a transcript.
type ScriptWriter interface {
	WriteScript(ctx context.Context, transcript string) (string, error)
}

// AudioEditor produces an edited copy of the audio and returns its path.
type AudioEditor interface {
	Edit(ctx context.Context, path string) (string, error)
}

// SilenceRemover trims silent stretches from an audio file.
type SilenceRemover interface {
	RemoveSilence(ctx context.Context, path string) (SilenceResult, error)
}

// Distributor publishes the edited audio and returns an opaque JSON result.
type Distributor interface {
	Distribute(ctx context.Context, path string) (json.RawMessage, error)
}

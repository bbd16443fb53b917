package metadata

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// Record is the persisted outcome of one job. A failed job stores only ID,
// Filename, UploadTime, and Error.
type Record struct {
	ID               string          `json:"id"`
	Filename         string          `json:"filename"`
	UploadTime       string          `json:"upload_time"`
	Transcript       string          `json:"transcript,omitempty"`
	Titles           []string        `json:"titles,omitempty"`
	SelectedTitle    *string         `json:"selected_title,omitempty"`
	ShortDescription string          `json:"short_description,omitempty"`
	LongDescription  string          `json:"long_description,omitempty"`
	People           []string        `json:"people,omitempty"`
	Locations        []string        `json:"locations,omitempty"`
	Script           string          `json:"script,omitempty"`
	EditedAudio      string          `json:"edited_audio,omitempty"`
	Distribution     json.RawMessage `json:"distribution,omitempty"`
	OriginalDuration *float64        `json:"original_duration,omitempty"`
	TrimmedDuration  *float64        `json:"trimmed_duration,omitempty"`
	ScheduleTime     string          `json:"schedule_time,omitempty"`
	PublishTargets   []string        `json:"publish_targets,omitempty"`
	Language         string          `json:"language,omitempty"`
	Error            string          `json:"error,omitempty"`

	// Extra holds fields written by other tools so they survive a rewrite.
	Extra map[string]json.RawMessage `json:"-"`
}

// Failed reports whether the record describes a failed job.
func (r Record) Failed() bool {
	return r.Error != ""
}

// Title returns the selected title, else the first suggestion, else the
// original filename.
func (r Record) Title() string {
	if r.SelectedTitle != nil && strings.TrimSpace(*r.SelectedTitle) != "" {
		return *r.SelectedTitle
	}
	if len(r.Titles) > 0 {
		return r.Titles[0]
	}
	return r.Filename
}

// UploadTimeNow formats the current time the way UploadTime is stored.
func UploadTimeNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type recordAlias Record

var knownFields = func() map[string]struct{} {
	fields := map[string]struct{}{}
	typ := reflect.TypeOf(recordAlias{})
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			fields[name] = struct{}{}
		}
	}
	return fields
}()

// UnmarshalJSON decodes known fields and keeps the rest in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var alias recordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if _, known := knownFields[key]; known {
			continue
		}
		if alias.Extra == nil {
			alias.Extra = map[string]json.RawMessage{}
		}
		alias.Extra[key] = value
	}
	*r = Record(alias)
	return nil
}

// MarshalJSON encodes known fields followed by any preserved Extra fields.
// Successful records always carry selected_title, as null until one is
// chosen; failed records keep only their core keys.
func (r Record) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(recordAlias(r))
	nullTitle := !r.Failed() && r.SelectedTitle == nil
	if err != nil || (len(r.Extra) == 0 && !nullTitle) {
		return data, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range r.Extra {
		if _, known := knownFields[key]; known {
			continue
		}
		merged[key] = value
	}
	if nullTitle {
		merged["selected_title"] = json.RawMessage("null")
	}
	return json.Marshal(merged)
}

// merge overlays fields onto r using JSON field names. A nil value clears the
// field.
func (r Record) merge(fields map[string]any) (Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return Record{}, err
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Record{}, err
	}
	for key, value := range fields {
		if value == nil {
			delete(doc, key)
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return Record{}, err
		}
		doc[key] = encoded
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return Record{}, err
	}
	var out Record
	if err := json.Unmarshal(merged, &out); err != nil {
		return Record{}, err
	}
	return out, nil
}

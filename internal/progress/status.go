package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"clipmato/internal/stage"
)

// InvalidFileCode marks a status synthesized because the status file itself
// is unreadable, as opposed to a pipeline-reported error.
const InvalidFileCode = "invalid_progress_file"

const invalidFileMessage = "Progress data is unreadable. Please retry or restart this job."

// Status is the current stage snapshot of one job.
type Status struct {
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Terminal reports whether the job has finished.
func (s Status) Terminal() bool {
	return s.Stage == stage.Complete || s.Stage == stage.Error
}

var percentages = map[string]int{
	stage.Pending:       0,
	stage.Transcribing:  20,
	stage.Descriptions:  30,
	stage.Entities:      40,
	stage.Titles:        50,
	stage.Script:        60,
	stage.Editing:       75,
	stage.RemoveSilence: 80,
	stage.Distribution:  90,
	stage.Complete:      100,
	stage.Error:         0,
}

// Percent returns the completion percentage for a stage. Unknown stages map
// to 0 and report false.
func Percent(name string) (int, bool) {
	pct, ok := percentages[name]
	return pct, ok
}

func pendingStatus() Status {
	return Status{Stage: stage.Pending, Progress: 0}
}

func invalidStatus() Status {
	return Status{Stage: stage.Error, Progress: 0, Error: InvalidFileCode, Message: invalidFileMessage}
}

var errSchema = errors.New("progress schema violation")

// decodeStatus parses and validates a status payload: stage must be a string,
// progress a number, message and error strings when present.
func decodeStatus(data []byte) (Status, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Status{}, err
	}
	if raw == nil {
		return Status{}, fmt.Errorf("%w: payload must be an object", errSchema)
	}

	stageName, ok := raw["stage"].(string)
	if !ok {
		return Status{}, fmt.Errorf("%w: stage must be a string", errSchema)
	}
	pct, ok := raw["progress"].(float64)
	if !ok || math.IsNaN(pct) || math.IsInf(pct, 0) {
		return Status{}, fmt.Errorf("%w: progress must be numeric", errSchema)
	}
	status := Status{Stage: stageName, Progress: int(pct)}

	if value, present := raw["message"]; present && value != nil {
		msg, ok := value.(string)
		if !ok {
			return Status{}, fmt.Errorf("%w: message must be a string", errSchema)
		}
		status.Message = msg
	}
	if value, present := raw["error"]; present && value != nil {
		code, ok := value.(string)
		if !ok {
			return Status{}, fmt.Errorf("%w: error must be a string", errSchema)
		}
		status.Error = code
	}
	return status, nil
}

package progress

import (
	"context"
	"encoding/json"

	"clipmato/internal/metadata"
)

// JobView is a stored record joined with its live status. It exists for
// presentation only.
type JobView struct {
	Record metadata.Record
	Status Status
}

// MarshalJSON flattens the record and overlays the status fields. A failed
// record keeps its own error message.
func (v JobView) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(v.Record)
	if err != nil {
		return nil, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	statusData, err := json.Marshal(v.Status)
	if err != nil {
		return nil, err
	}
	statusFields := map[string]json.RawMessage{}
	if err := json.Unmarshal(statusData, &statusFields); err != nil {
		return nil, err
	}
	for key, value := range statusFields {
		if key == "error" && v.Record.Failed() {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// Enrich pairs each record with its current status. Records are copied, never
// modified.
func (s *Store) Enrich(ctx context.Context, records []metadata.Record) []JobView {
	views := make([]JobView, 0, len(records))
	for _, record := range records {
		views = append(views, JobView{Record: record, Status: s.Read(ctx, record.ID)})
	}
	return views
}

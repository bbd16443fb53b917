package schedule

import (
	"sort"
	"time"

	"clipmato/internal/metadata"
)

// Cadences understood by Compute.
const (
	Daily  = "daily"
	Weekly = "weekly"
	EveryN = "every_n"
)

// DefaultPublishHour is the UTC hour every computed slot is normalized to.
const DefaultPublishHour = 9

// IntervalDays returns the spacing between slots. every_n without a positive
// n, and any unknown cadence, fall back to daily.
func IntervalDays(cadence string, n int) int {
	switch {
	case cadence == Weekly:
		return 7
	case cadence == EveryN && n > 0:
		return n
	default:
		return 1
	}
}

// Compute returns posting timestamps keyed by record id. The first slot is one
// interval after now and each following record, in input order, is one
// interval later. Every slot is moved to publishHour:00:00 UTC and formatted as
// RFC 3339.
func Compute(records []metadata.Record, cadence string, n int, now time.Time, publishHour int) map[string]string {
	days := IntervalDays(cadence, n)
	start := now.UTC().AddDate(0, 0, days)
	out := make(map[string]string, len(records))
	for i, record := range records {
		slot := start.AddDate(0, 0, i*days)
		slot = time.Date(slot.Year(), slot.Month(), slot.Day(), publishHour, 0, 0, 0, time.UTC)
		out[record.ID] = slot.Format(time.RFC3339)
	}
	return out
}

// Slot is one scheduled record, used for ordered presentation.
type Slot struct {
	ID   string
	Time string
}

// Sorted orders a schedule by time, then id.
func Sorted(plan map[string]string) []Slot {
	slots := make([]Slot, 0, len(plan))
	for id, ts := range plan {
		slots = append(slots, Slot{ID: id, Time: ts})
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Time != slots[j].Time {
			return slots[i].Time < slots[j].Time
		}
		return slots[i].ID < slots[j].ID
	})
	return slots
}

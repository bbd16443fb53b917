package schedule_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmato/internal/logging"
	"clipmato/internal/metadata"
	"clipmato/internal/schedule"
)

var fixedNow = time.Date(2026, 3, 10, 17, 42, 13, 500, time.UTC)

func records(ids ...string) []metadata.Record {
	out := make([]metadata.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, metadata.Record{ID: id})
	}
	return out
}

func TestComputeDaily(t *testing.T) {
	plan := schedule.Compute(records("a", "b", "c"), schedule.Daily, 0, fixedNow, 9)

	assert.Equal(t, map[string]string{
		"a": "2026-03-11T09:00:00Z",
		"b": "2026-03-12T09:00:00Z",
		"c": "2026-03-13T09:00:00Z",
	}, plan)

	var prev time.Time
	for _, id := range []string{"a", "b", "c"} {
		ts, err := time.Parse(time.RFC3339, plan[id])
		require.NoError(t, err)
		assert.Equal(t, 9, ts.Hour())
		assert.Zero(t, ts.Minute())
		assert.Zero(t, ts.Second())
		assert.Zero(t, ts.Nanosecond())
		if !prev.IsZero() {
			assert.Equal(t, 24*time.Hour, ts.Sub(prev))
		}
		prev = ts
	}
}

func TestComputeCadences(t *testing.T) {
	cases := []struct {
		name    string
		cadence string
		n       int
		want    []string
	}{
		{"weekly", schedule.Weekly, 0, []string{"2026-03-17T09:00:00Z", "2026-03-24T09:00:00Z"}},
		{"every_n", schedule.EveryN, 3, []string{"2026-03-13T09:00:00Z", "2026-03-16T09:00:00Z"}},
		{"every_n without n", schedule.EveryN, 0, []string{"2026-03-11T09:00:00Z", "2026-03-12T09:00:00Z"}},
		{"unknown", "fortnightly", 0, []string{"2026-03-11T09:00:00Z", "2026-03-12T09:00:00Z"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := schedule.Compute(records("x", "y"), tc.cadence, tc.n, fixedNow, 9)
			assert.Equal(t, tc.want[0], plan["x"])
			assert.Equal(t, tc.want[1], plan["y"])
		})
	}
}

func TestComputeIsDeterministicAndHonoursHour(t *testing.T) {
	in := records("a", "b")
	first := schedule.Compute(in, schedule.Daily, 0, fixedNow, 14)
	second := schedule.Compute(in, schedule.Daily, 0, fixedNow, 14)
	assert.Equal(t, first, second)
	assert.Equal(t, "2026-03-11T14:00:00Z", first["a"])
	assert.Empty(t, schedule.Compute(nil, schedule.Daily, 0, fixedNow, 9))
}

func TestComputeConvertsToUTC(t *testing.T) {
	tz := time.FixedZone("UTC+10", 10*60*60)
	local := time.Date(2026, 3, 11, 5, 0, 0, 0, tz)
	plan := schedule.Compute(records("a"), schedule.Daily, 0, local, 9)
	assert.Equal(t, "2026-03-11T09:00:00Z", plan["a"])
}

type stubProposer struct {
	plan map[string]string
	err  error
}

func (s stubProposer) Propose(context.Context, schedule.Request) (map[string]string, error) {
	return s.plan, s.err
}

func TestPlannerUsesProposal(t *testing.T) {
	p := schedule.NewPlanner(stubProposer{plan: map[string]string{
		"a": "2026-04-01T12:30:00+02:00",
		"b": "2026-04-02T10:00:00",
		"z": "ignored",
	}}, logging.NewNop(), schedule.WithClock(func() time.Time { return fixedNow }))

	plan := p.Plan(context.Background(), schedule.Request{Records: records("a", "b"), Cadence: schedule.Daily})
	assert.Equal(t, map[string]string{"a": "2026-04-01T10:30:00Z", "b": "2026-04-02T10:00:00Z"}, plan)
}

func TestPlannerFallsBack(t *testing.T) {
	cases := map[string]stubProposer{
		"error":        {err: errors.New("llm unavailable")},
		"missing id":   {plan: map[string]string{"a": "2026-04-01T12:30:00Z"}},
		"bad value":    {plan: map[string]string{"a": "tomorrow", "b": "later"}},
		"empty result": {},
	}
	for name, proposer := range cases {
		t.Run(name, func(t *testing.T) {
			p := schedule.NewPlanner(proposer, logging.NewNop(),
				schedule.WithClock(func() time.Time { return fixedNow }),
				schedule.WithPublishHour(9))
			req := schedule.Request{Records: records("a", "b"), Cadence: schedule.Weekly}
			assert.Equal(t, schedule.Compute(req.Records, schedule.Weekly, 0, fixedNow, 9), p.Plan(context.Background(), req))
		})
	}
}

func TestPlannerWithoutProposer(t *testing.T) {
	p := schedule.NewPlanner(nil, nil, schedule.WithClock(func() time.Time { return fixedNow }))
	plan := p.Plan(context.Background(), schedule.Request{Records: records("a"), Cadence: schedule.Daily})
	assert.Equal(t, "2026-03-11T09:00:00Z", plan["a"])
}

func TestAutoSchedulesOnlyPendingRecords(t *testing.T) {
	ctx := context.Background()
	store := metadata.NewStore(filepath.Join(t.TempDir(), "metadata.json"), logging.NewNop())
	require.NoError(t, store.Append(ctx, metadata.Record{ID: "done", ScheduleTime: "2026-01-01T09:00:00Z"}))
	require.NoError(t, store.Append(ctx, metadata.Record{ID: "failed", Error: "boom"}))
	require.NoError(t, store.Append(ctx, metadata.Record{ID: "first"}))
	require.NoError(t, store.Append(ctx, metadata.Record{ID: "second"}))

	auto := schedule.NewAuto(store, schedule.NewPlanner(nil, nil, schedule.WithClock(func() time.Time { return fixedNow })), logging.NewNop())

	preview := auto.Preview(ctx, schedule.Daily, 0)
	assert.Len(t, preview, 2)
	rec, _ := store.Get(ctx, "first")
	assert.Empty(t, rec.ScheduleTime, "preview must not write")

	applied, err := auto.Run(ctx, schedule.Daily, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"first": "2026-03-11T09:00:00Z", "second": "2026-03-12T09:00:00Z"}, applied)

	rec, _ = store.Get(ctx, "second")
	assert.Equal(t, "2026-03-12T09:00:00Z", rec.ScheduleTime)
	rec, _ = store.Get(ctx, "done")
	assert.Equal(t, "2026-01-01T09:00:00Z", rec.ScheduleTime)
	rec, _ = store.Get(ctx, "failed")
	assert.Empty(t, rec.ScheduleTime)

	again, err := auto.Run(ctx, schedule.Daily, 0)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRunCronRejectsBadSpec(t *testing.T) {
	store := metadata.NewStore(filepath.Join(t.TempDir(), "metadata.json"), logging.NewNop())
	auto := schedule.NewAuto(store, schedule.NewPlanner(nil, nil), logging.NewNop())
	err := auto.RunCron(context.Background(), "not a cron", schedule.Daily, 0)
	require.Error(t, err)
}

func TestSorted(t *testing.T) {
	slots := schedule.Sorted(map[string]string{"b": "2026-01-02T09:00:00Z", "a": "2026-01-03T09:00:00Z", "c": "2026-01-02T09:00:00Z"})
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{slots[0].ID, slots[1].ID, slots[2].ID})
}

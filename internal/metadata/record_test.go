package metadata_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmato/internal/metadata"
)

func TestFailureRecordHasOnlyCoreKeys(t *testing.T) {
	rec := metadata.Record{ID: "a", Filename: "a.mp3", UploadTime: "2026-01-01T00:00:00Z", Error: "boom"}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	assert.ElementsMatch(t, []string{"id", "filename", "upload_time", "error"}, keys)
	assert.True(t, rec.Failed())
}

func TestRecordTitle(t *testing.T) {
	selected := "Chosen"
	assert.Equal(t, "Chosen", metadata.Record{SelectedTitle: &selected, Titles: []string{"First"}}.Title())
	assert.Equal(t, "First", metadata.Record{Titles: []string{"First"}, Filename: "f.mp3"}.Title())
	assert.Equal(t, "f.mp3", metadata.Record{Filename: "f.mp3"}.Title())
}

func TestSuccessRecordWritesNullSelectedTitle(t *testing.T) {
	rec := metadata.Record{ID: "a", Filename: "a.mp3", UploadTime: "2026-01-01T00:00:00Z", Titles: []string{"One"}}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "selected_title")
	assert.Equal(t, "null", string(raw["selected_title"]))

	var back metadata.Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.SelectedTitle)
	assert.Empty(t, back.Extra)

	chosen := "One"
	rec.SelectedTitle = &chosen
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"selected_title":"One"`)
}

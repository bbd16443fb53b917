package upload

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmato/internal/config"
	"clipmato/internal/services"
	"clipmato/internal/testsupport"
)

var wavHeader = testsupport.WAV(0)

func newStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	return NewStore(t.TempDir(), maxBytes, config.DefaultAllowedTypes())
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"../../etc/pass wd.mp3":     "pass_wd.mp3",
		`C:\Users\me\My Talk.wav`:   "My_Talk.wav",
		"":                          "upload",
		"épisode #1.m4a":            "_pisode__1.m4a",
		"already_safe-name.v2.flac": "already_safe-name.v2.flac",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "Sanitize(%q)", in)
	}
}

func TestUniqueName(t *testing.T) {
	assert.Equal(t, "My_Talk_abc123.wav", UniqueName("My Talk.wav", "abc123"))
	assert.Equal(t, "upload_abc123", UniqueName("", "abc123"))

	a, b := UniqueName("x.mp3", ""), UniqueName("x.mp3", "")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "x_") && strings.HasSuffix(a, ".mp3"))
}

func TestToken(t *testing.T) {
	assert.Equal(t, "6ba7b8109dad11d180b400c04fd430c8", Token("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.Equal(t, "job_1", Token("job/1"))
}

func TestAcceptStoresFile(t *testing.T) {
	store := newStore(t, 1024)
	saved, err := store.Accept("../My Talk.wav", "audio/wav", "tok", bytes.NewReader(wavHeader))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.Dir(), "My_Talk_tok.wav"), saved.Path)
	assert.Equal(t, int64(len(wavHeader)), saved.Size)
	assert.True(t, strings.HasPrefix(saved.DetectedType, "audio/"))
	content, err := os.ReadFile(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, wavHeader, content)
}

func TestAcceptRejectsDeclaredType(t *testing.T) {
	store := newStore(t, 1024)
	_, err := store.Accept("doc.pdf", "application/pdf", "tok", bytes.NewReader([]byte("%PDF-1.4")))
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "audio/mpeg")

	entries, _ := os.ReadDir(store.Dir())
	assert.Empty(t, entries)
}

func TestAcceptDeclaredTypeWithParameters(t *testing.T) {
	store := newStore(t, 1024)
	_, err := store.Accept("a.wav", "Audio/WAV; codecs=1", "tok", bytes.NewReader(wavHeader))
	require.NoError(t, err)
}

func TestAcceptRejectsNonMediaContent(t *testing.T) {
	store := newStore(t, 1024)
	_, err := store.Accept("fake.mp3", "audio/mpeg", "tok", strings.NewReader("just some text, not audio"))
	require.ErrorIs(t, err, ErrUnsupportedType)
	_, statErr := os.Stat(filepath.Join(store.Dir(), "fake_tok.mp3"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "rejected upload must be removed")
}

func TestAcceptRejectsOversizedUpload(t *testing.T) {
	store := newStore(t, 16)
	_, err := store.Accept("big.wav", "audio/wav", "tok", bytes.NewReader(wavHeader))
	require.ErrorIs(t, err, ErrTooLarge)
	entries, _ := os.ReadDir(store.Dir())
	assert.Empty(t, entries, "partial file must be removed")
}

func TestRemoveJobFiles(t *testing.T) {
	store := newStore(t, 1024)
	for _, name := range []string{"talk_tok.webm", "talk_tok.wav", "talk_tok_edited.mp3", "talk_tok_edited_trimmed.mp3", "other_zzz.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), name), []byte("x"), 0o644))
	}
	removed, err := store.RemoveJobFiles("tok")
	require.NoError(t, err)
	assert.Len(t, removed, 4)

	entries, _ := os.ReadDir(store.Dir())
	require.Len(t, entries, 1)
	assert.Equal(t, "other_zzz.mp3", entries[0].Name())

	removed, err = store.RemoveJobFiles("")
	assert.NoError(t, err)
	assert.Empty(t, removed)
}

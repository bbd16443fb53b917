package services_test

import (
	"errors"
	"strings"
	"testing"

	"clipmato/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "editing", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"editing", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "titles", "decode", "bad output", nil), "validation"},
		{services.Wrap(services.ErrStoreIO, "", "append", "", errors.New("disk full")), "store_io"},
		{services.Wrap(services.ErrNotFound, "", "remove", "", nil), "not_found"},
		{services.Wrap(services.ErrConfiguration, "", "", "missing key", nil), "configuration"},
		{services.Wrap(services.ErrExternalTool, "editing", "", "", nil), "external_tool"},
		{errors.New("plain"), "unclassified"},
	}
	for _, tc := range cases {
		if got := services.ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestDetailsStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrExternalTool, "transcribing", "probe", "No audio track detected", nil)
	kind, message := services.Details(err)
	if kind != "external_tool" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if message != "transcribing: probe: No audio track detected" {
		t.Fatalf("unexpected message %q", message)
	}

	kind, message = services.Details(errors.New("plain failure"))
	if kind != "unclassified" || message != "plain failure" {
		t.Fatalf("unexpected details %q %q", kind, message)
	}

	if kind, message := services.Details(nil); kind != "" || message != "" {
		t.Fatalf("expected empty details for nil, got %q %q", kind, message)
	}
}

package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"notecast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrCollaborator, "transcribe", "whisperx", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrCollaborator) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "whisperx", "failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToCollaborator(t *testing.T) {
	err := services.Wrap(nil, "render", "", "", nil)
	if !errors.Is(err, services.ErrCollaborator) {
		t.Fatalf("expected collaborator marker, got %v", err)
	}
}

func TestDetailsStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrInvalidInput, "extract", "", "unrecognized url", nil)
	details := services.Details(err)
	if details.Kind != "invalid_input" {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Message != "extract: unrecognized url" {
		t.Fatalf("unexpected message %q", details.Message)
	}

	plain := services.Details(errors.New("plain failure"))
	if plain.Kind != "internal" || plain.Message != "plain failure" {
		t.Fatalf("unexpected details for plain error: %+v", plain)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid", services.Wrap(services.ErrInvalidInput, "extract", "", "bad", nil), http.StatusBadRequest},
		{"not found", services.Wrap(services.ErrNotFound, "download", "", "missing", nil), http.StatusNotFound},
		{"collaborator", services.Wrap(services.ErrCollaborator, "acquire", "", "403", nil), http.StatusInternalServerError},
		{"storage", services.Wrap(services.ErrStorage, "transcript", "read", "", errors.New("eio")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

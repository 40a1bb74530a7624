package videoid_test

import (
	"errors"
	"testing"

	"notecast/internal/services"
	"notecast/internal/videoid"
)

func TestExtractSameIDAcrossShapes(t *testing.T) {
	urls := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?t=42",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&list=PL1",
		"https://youtube.com/watch?v=dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ?version=3",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ",
		"www.youtube.com/watch?v=dQw4w9WgXcQ",
		"youtu.be/dQw4w9WgXcQ",
		"  https://youtu.be/dQw4w9WgXcQ  ",
	}
	for _, raw := range urls {
		got, err := videoid.Extract(raw)
		if err != nil {
			t.Errorf("Extract(%q) returned error: %v", raw, err)
			continue
		}
		if got != "dQw4w9WgXcQ" {
			t.Errorf("Extract(%q) = %q, want dQw4w9WgXcQ", raw, got)
		}
	}
}

func TestExtractShortLink(t *testing.T) {
	got, err := videoid.Extract("https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("Extract = %q, want abc123", got)
	}
}

func TestExtractRejectsInvalidURLs(t *testing.T) {
	urls := []string{
		"",
		"   ",
		"not-a-url",
		"https://vimeo.com/12345",
		"https://www.youtube.com/",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?v=",
		"https://www.youtube.com/channel/UC123",
		"ftp://youtu.be/abc123",
		"https://youtu.be/",
		"https://youtu.be/../etc",
		"https://www.youtube.com/watch?v=abc%2F..%2Fpasswd",
	}
	for _, raw := range urls {
		_, err := videoid.Extract(raw)
		if err == nil {
			t.Errorf("Extract(%q) expected error", raw)
			continue
		}
		if !errors.Is(err, services.ErrInvalidInput) {
			t.Errorf("Extract(%q) error %v is not ErrInvalidInput", raw, err)
		}
	}
}

func TestValid(t *testing.T) {
	if !videoid.Valid("abc_123-X") {
		t.Fatal("expected identifier to be valid")
	}
	for _, id := range []string{"", "a/b", "..", "a b"} {
		if videoid.Valid(id) {
			t.Fatalf("expected %q to be invalid", id)
		}
	}
}

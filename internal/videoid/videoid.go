// Package videoid derives the stable identifier that keys every artifact of a
// pipeline run from a video URL. It performs no I/O.
package videoid

import (
	"fmt"
	"net/url"
	"strings"

	"notecast/internal/services"
)

// Extract returns the video identifier for the supported URL shapes:
//
//	https://youtu.be/{id}
//	https://www.youtube.com/watch?v={id}
//	https://www.youtube.com/embed/{id}
//	https://www.youtube.com/v/{id}
//	https://www.youtube.com/shorts/{id}
//
// The scheme may be omitted and the m., music. and youtube-nocookie hosts are
// accepted. Query parameters other than v are ignored. Failures carry
// services.ErrInvalidInput.
func Extract(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", invalid("url is empty", rawURL)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", invalid("url is malformed", rawURL)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", invalid("unsupported url scheme", rawURL)
	}

	host := strings.ToLower(parsed.Hostname())
	segments := pathSegments(parsed.Path)

	var id string
	switch {
	case host == "youtu.be":
		if len(segments) >= 1 {
			id = segments[0]
		}
	case isWatchHost(host):
		id = fromWatchHost(parsed, segments)
	}

	if !validID(id) {
		return "", invalid("unrecognized video url", rawURL)
	}
	return id, nil
}

// Valid reports whether id has the shape of an identifier produced by Extract.
// Callers use it to reject path components before touching the filesystem.
func Valid(id string) bool {
	return validID(id)
}

func isWatchHost(host string) bool {
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com",
		"youtube-nocookie.com", "www.youtube-nocookie.com":
		return true
	}
	return false
}

func fromWatchHost(parsed *url.URL, segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	switch segments[0] {
	case "watch":
		return parsed.Query().Get("v")
	case "embed", "v", "shorts", "live":
		if len(segments) >= 2 {
			return segments[1]
		}
	}
	return ""
}

func pathSegments(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func validID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func invalid(message, rawURL string) error {
	return services.Wrap(services.ErrInvalidInput, "extract", "parse url", message, fmt.Errorf("url %q", rawURL))
}

package artifacts

import "strings"

// Kind names one of the four artifacts a pipeline run produces.
type Kind string

const (
	KindAudio      Kind = "audio"
	KindTranscript Kind = "transcript"
	KindNotes      Kind = "notes"
	KindDocument   Kind = "pdf"
)

// Kinds lists every artifact kind in pipeline order.
var Kinds = []Kind{KindAudio, KindTranscript, KindNotes, KindDocument}

// Extension returns the fixed file extension for k, without a dot.
func (k Kind) Extension() string {
	switch k {
	case KindAudio:
		return "mp3"
	case KindTranscript:
		return "txt"
	case KindNotes:
		return "md"
	case KindDocument:
		return "pdf"
	default:
		return ""
	}
}

// MediaType returns the Content-Type served for downloads of k.
func (k Kind) MediaType() string {
	switch k {
	case KindAudio:
		return "audio/mpeg"
	case KindTranscript:
		return "text/plain"
	case KindNotes:
		return "text/markdown"
	case KindDocument:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Textual reports whether k holds text the pipeline reads back.
func (k Kind) Textual() bool {
	return k == KindTranscript || k == KindNotes
}

// ParseKind resolves a kind name as used in download URLs.
func ParseKind(value string) (Kind, bool) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, k := range Kinds {
		if k == candidate {
			return k, true
		}
	}
	return "", false
}

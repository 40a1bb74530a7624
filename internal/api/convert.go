package api

import (
	"notecast/internal/artifacts"
	"notecast/internal/cleanup"
	"notecast/internal/pipeline"
	"notecast/internal/services"
)

// FromResult converts a pipeline result into its wire form.
func FromResult(res pipeline.Result) TranscriptResponse {
	return TranscriptResponse{
		VideoID:          res.VideoID,
		DetectedLanguage: res.DetectedLanguage,
		TargetLanguage:   res.TargetLanguage,
		Translated:       res.Translated,
		Cached:           res.Cached,
		AudioPath:        res.AudioPath,
		TranscriptPath:   res.TranscriptPath,
		NotesPath:        res.NotesPath,
		PDFPath:          res.DocumentPath,
	}
}

// FromFileInfos keys artifact descriptions by kind.
func FromFileInfos(infos []artifacts.FileInfo) FilesResponse {
	out := make(FilesResponse, len(infos))
	for _, info := range infos {
		out[string(info.Kind)] = FileEntry{Exists: info.Exists, Path: info.Path, Size: info.Size}
	}
	return out
}

// FromPending converts scheduler entries, preserving order.
func FromPending(pending []cleanup.Pending) []PendingCleanup {
	out := make([]PendingCleanup, 0, len(pending))
	for _, p := range pending {
		out = append(out, PendingCleanup{VideoID: p.VideoID, DueAt: FormatTime(p.DueAt)})
	}
	return out
}

// FromError builds the error body for err.
func FromError(err error) ErrorResponse {
	details := services.Details(err)
	return ErrorResponse{Detail: details.Message, Kind: details.Kind}
}

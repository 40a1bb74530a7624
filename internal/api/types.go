package api

import "time"

// TranscriptRequest is the body of POST /api/transcript.
type TranscriptRequest struct {
	YoutubeURL     string `json:"youtube_url"`
	ModelSize      string `json:"model_size,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// TranscriptResponse reports the outcome of a pipeline run.
type TranscriptResponse struct {
	VideoID          string `json:"video_id"`
	DetectedLanguage string `json:"detected_language"`
	TargetLanguage   string `json:"target_language"`
	Translated       bool   `json:"translated"`
	Cached           bool   `json:"cached"`
	AudioPath        string `json:"audio_path"`
	TranscriptPath   string `json:"transcript_path"`
	NotesPath        string `json:"notes_path"`
	PDFPath          string `json:"pdf_path"`
}

// FileEntry describes one artifact file.
type FileEntry struct {
	Exists bool   `json:"exists"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// FilesResponse maps artifact kind names to their file entries.
type FilesResponse map[string]FileEntry

// DownloadTarget is a resolved artifact ready to stream.
type DownloadTarget struct {
	Path      string
	MediaType string
	FileName  string
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}

// PendingCleanup is a scheduled artifact deletion.
type PendingCleanup struct {
	VideoID string `json:"video_id"`
	DueAt   string `json:"due_at"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running         bool               `json:"running"`
	PID             int                `json:"pid"`
	OutputDir       string             `json:"output_dir"`
	LedgerPath      string             `json:"ledger_path"`
	LockFilePath    string             `json:"lock_file_path"`
	StartedAt       string             `json:"started_at,omitempty"`
	PendingCleanups []PendingCleanup   `json:"pending_cleanups"`
	Dependencies    []DependencyStatus `json:"dependencies"`
}

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in the API timestamp format; the zero time is empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

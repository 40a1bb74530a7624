package api

import (
	"fmt"

	"notecast/internal/artifacts"
	"notecast/internal/services"
	"notecast/internal/videoid"
)

// FileStater reports artifact files for an identifier.
type FileStater interface {
	Stat(id string, kind artifacts.Kind) artifacts.FileInfo
	StatAll(id string) []artifacts.FileInfo
}

// FilesService answers file listing and download lookups.
type FilesService struct {
	store FileStater
}

// NewFilesService constructs a FilesService around store.
func NewFilesService(store FileStater) *FilesService {
	if store == nil {
		return nil
	}
	return &FilesService{store: store}
}

// List describes every artifact kind for id.
func (s *FilesService) List(id string) (FilesResponse, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if s == nil || s.store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "files", "list", "artifact store unavailable", nil)
	}
	return FromFileInfos(s.store.StatAll(id)), nil
}

// Download resolves the file to stream for id and kind.
func (s *FilesService) Download(id, kindName string) (DownloadTarget, error) {
	if err := checkID(id); err != nil {
		return DownloadTarget{}, err
	}
	kind, ok := artifacts.ParseKind(kindName)
	if !ok {
		return DownloadTarget{}, services.Wrap(services.ErrInvalidInput, "files", "download", "Invalid file type", nil)
	}
	if s == nil || s.store == nil {
		return DownloadTarget{}, services.Wrap(services.ErrConfiguration, "files", "download", "artifact store unavailable", nil)
	}
	info := s.store.Stat(id, kind)
	if !info.Exists {
		return DownloadTarget{}, services.Wrap(services.ErrNotFound, "files", "download", "File not found", nil)
	}
	return DownloadTarget{
		Path:      info.Path,
		MediaType: kind.MediaType(),
		FileName:  DownloadName(id, kind),
	}, nil
}

// DownloadName is the attachment filename offered to browsers.
func DownloadName(id string, kind artifacts.Kind) string {
	return fmt.Sprintf("video_%s_%s.%s", id, kind, kind.Extension())
}

func checkID(id string) error {
	if !videoid.Valid(id) {
		return services.Wrap(services.ErrInvalidInput, "files", "validate", fmt.Sprintf("invalid video id %q", id), nil)
	}
	return nil
}

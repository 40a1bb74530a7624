package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrCollaborator  = errors.New("collaborator failure")
	ErrStorage       = errors.New("storage error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// ErrorDetails is the classified view of a wrapped error used by the HTTP
// boundary and the CLI.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrCollaborator
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Details classifies err by its marker and returns a human readable message
// with the marker prefix removed.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	kind := "internal"
	var marker error
	for _, candidate := range []error{ErrInvalidInput, ErrNotFound, ErrConfiguration, ErrStorage, ErrCollaborator} {
		if errors.Is(err, candidate) {
			marker = candidate
			kind = kindLabel(candidate)
			break
		}
	}
	message := strings.TrimSpace(err.Error())
	if marker != nil {
		message = strings.TrimSpace(strings.TrimPrefix(message, marker.Error()+":"))
	}
	return ErrorDetails{Kind: kind, Message: message}
}

// HTTPStatus maps a pipeline error to the status code returned at the API boundary.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func kindLabel(marker error) string {
	switch marker {
	case ErrInvalidInput:
		return "invalid_input"
	case ErrNotFound:
		return "not_found"
	case ErrConfiguration:
		return "configuration"
	case ErrStorage:
		return "storage"
	case ErrCollaborator:
		return "collaborator"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

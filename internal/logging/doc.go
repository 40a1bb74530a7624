// Package logging builds the structured slog loggers used across notecast.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag records with the video identifier, pipeline stage,
// and request correlation ID. A no-op logger is provided for tests and for
// wiring code that runs without a configured logger.
package logging

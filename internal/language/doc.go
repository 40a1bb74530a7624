// Package language normalizes and compares language codes used by the
// transcription, translation, and note-writing stages.
package language

// Package config loads, normalizes, and validates notecast configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files and optional .env files, and honours environment fallbacks such
// as OPENROUTER_API_KEY and NOTECAST_API_TOKEN. Obtain settings through this
// package so downstream code receives absolute paths and validated values.
package config

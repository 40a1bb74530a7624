// Package api defines the wire-format types shared by the HTTP daemon and the
// CLI, plus the read-only artifact file service behind the files and download
// endpoints.
//
// JSON tags use snake_case because the bundled front-end posts and reads
// those exact field names. Error bodies carry a "detail" message and a
// machine-readable "kind" derived from the services error markers.
package api

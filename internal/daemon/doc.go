// Package daemon coordinates the long-running notecast process.
//
// It holds a flock-based single-instance lock, evicts stale artifacts left by
// earlier runs, restores pending cleanups from the ledger, and serves the
// HTTP API and front-end bundle with chi. Pipeline logic lives in the
// pipeline package; the daemon only owns startup, shutdown, and routing.
package daemon

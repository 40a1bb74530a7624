// Package preflight runs environment checks before the daemon starts and for
// "notecast doctor": directory permissions, external binaries, and
// reachability of the translation and LLM endpoints.
package preflight

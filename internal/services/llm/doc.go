// Package llm provides an OpenRouter chat client used to generate study notes.
//
// Requests carry the configured model, temperature and token limit. The client
// retries on HTTP 408/429/5xx, empty replies and network timeouts with
// exponential backoff, honouring Retry-After when the provider sends it.
// Context cancellation aborts retries immediately.
package llm

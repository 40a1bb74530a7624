package preflight

import (
	"context"

	"notecast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects the network checks RunAll performs.
type Options struct {
	// Network enables the translation and LLM reachability checks.
	Network bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.FrontendDir != "" {
		results = append(results, CheckFrontend(cfg.Paths.FrontendDir))
	}
	if !opts.Network {
		return results
	}
	results = append(results, CheckTranslation(ctx, cfg.Translate))
	results = append(results, CheckLLM(ctx, "Notes LLM", cfg.LLM))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

package preflight

import (
	"context"
	"fmt"
	"strings"

	"recplan/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// metadataPath overrides the configured metadata location when set.
func RunAll(ctx context.Context, cfg *config.Config, metadataPath string) []Result {
	if cfg == nil {
		return nil
	}
	if strings.TrimSpace(metadataPath) == "" {
		metadataPath = cfg.MetadataPath()
	}

	results := []Result{
		CheckMetadataFile(metadataPath),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}
	return results
}

// Failures returns the required checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summary joins failed checks into a single line.
func Summary(failed []Result) string {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return strings.Join(parts, "; ")
}

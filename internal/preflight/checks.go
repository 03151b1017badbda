package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"recplan/internal/config"
	"recplan/internal/deps"
)

// CheckMetadataFile verifies that the recorder metadata file is readable.
func CheckMetadataFile(path string) Result {
	const name = "Metadata file"
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external programs the config enables. Both
// the pipeline and `recplan config validate` use this list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	var requirements []deps.Requirement
	if cfg.Ingest.ProbeDurations {
		requirements = append(requirements, deps.Requirement{
			Name:        "FFprobe",
			Command:     cfg.Ingest.FFprobeBinary,
			Description: "Required to measure recordings without durationMs",
		})
	}
	if cfg.Render.Command != "" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Render command",
			Command:     cfg.Render.Command,
			Description: "Invoked once per section manifest",
		})
	}
	return deps.CheckBinaries(requirements)
}

package render

import (
	"context"
	"fmt"
	"path/filepath"

	"recplan/internal/timeline"
)

// Task is one unit of render work.
type Task struct {
	RunID     string
	Section   timeline.Section
	Workspace string
}

// Renderer turns a section into output. Implementations must only write
// inside task.Workspace and their own output locations keyed by sequence.
type Renderer interface {
	Render(ctx context.Context, task Task) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, task Task) error

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// SectionName is the directory and file stem used for a section.
func SectionName(sequence int) string {
	return fmt.Sprintf("section%d", sequence)
}

// WorkspacePath returns the private workspace for a section of a run.
func WorkspacePath(workDir, runID string, sequence int) string {
	return filepath.Join(workDir, runID, SectionName(sequence))
}

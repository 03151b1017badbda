package render

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"recplan/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// ExecRenderer writes the section manifest and then invokes an external
// command with the manifest path as its final argument.
type ExecRenderer struct {
	manifest *ManifestRenderer
	command  []string
	run      commandRunner
}

// NewExecRenderer parses command into a program and leading arguments.
func NewExecRenderer(manifest *ManifestRenderer, command string) (*ExecRenderer, error) {
	if manifest == nil {
		return nil, errors.New("exec renderer requires a manifest renderer")
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "render", "configure", "render.command is empty", nil)
	}
	return &ExecRenderer{manifest: manifest, command: fields, run: defaultCommandRunner}, nil
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (r *ExecRenderer) WithCommandRunner(run commandRunner) {
	if run != nil {
		r.run = run
	}
}

// Program returns the executable that will be invoked.
func (r *ExecRenderer) Program() string {
	return r.command[0]
}

// Render implements Renderer.
func (r *ExecRenderer) Render(ctx context.Context, task Task) error {
	manifestPath, err := r.manifest.write(ctx, task)
	if err != nil {
		return err
	}
	args := append(append([]string(nil), r.command[1:]...), manifestPath)
	if err := r.run(ctx, r.command[0], args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "render", r.command[0], fmt.Sprintf("render section %d", task.Section.Sequence), err)
	}
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

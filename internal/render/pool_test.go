package render_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"recplan/internal/layout"
	"recplan/internal/logging"
	"recplan/internal/participant"
	"recplan/internal/render"
	"recplan/internal/services"
	"recplan/internal/timeline"
)

func section(seq int) timeline.Section {
	start := int64(seq * 100)
	return timeline.Section{
		Sequence: seq,
		Start:    start,
		End:      start + 100,
		Visible: []participant.Record{
			{ID: "a", Speaking: true, AspectRatio: layout.AspectRatio16x9},
			{ID: "a", AspectRatio: layout.AspectRatio16x9},
			{ID: "b", AspectRatio: layout.AspectRatio4x3},
		},
		Large:     layout.Dimension{Width: 1107, Height: 623},
		Small:     []layout.Dimension{{Width: 172, Height: 97}, {Width: 129, Height: 97}},
		Positions: []layout.Point{{X: 489.5, Y: 623}, {X: 661.5, Y: 623}},
	}
}

func TestPoolContinuePolicyKeepsGoing(t *testing.T) {
	workDir := t.TempDir()
	boom := errors.New("encoder crashed")
	var mu sync.Mutex
	var completions []int

	renderer := render.RendererFunc(func(ctx context.Context, task render.Task) error {
		if _, err := os.Stat(task.Workspace); err != nil {
			t.Errorf("workspace missing for section %d: %v", task.Section.Sequence, err)
		}
		if seq, ok := services.SectionFromContext(ctx); !ok || seq != task.Section.Sequence {
			t.Errorf("expected section %d in context, got %d", task.Section.Sequence, seq)
		}
		if task.Section.Sequence == 2 {
			return boom
		}
		return nil
	})

	pool, err := render.NewPool(context.Background(), renderer, render.Options{
		RunID:       "run-1",
		Parallelism: 3,
		WorkDir:     workDir,
		Policy:      render.PolicyContinue,
		Hooks: render.Hooks{
			OnComplete: func(_ string, seq int, _ error) {
				mu.Lock()
				completions = append(completions, seq)
				mu.Unlock()
			},
		},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	for seq := 0; seq < 6; seq++ {
		if err := pool.Submit(section(seq)); err != nil {
			t.Fatalf("Submit %d: %v", seq, err)
		}
	}
	report := pool.Wait()

	if report.Err != nil {
		t.Fatalf("continue policy should not report an error, got %v", report.Err)
	}
	if !slices.Equal(report.Completed, []int{0, 1, 3, 4, 5}) {
		t.Fatalf("unexpected completed %v", report.Completed)
	}
	if !slices.Equal(report.Failed, []int{2}) {
		t.Fatalf("unexpected failed %v", report.Failed)
	}
	if report.Submitted() != 6 || len(completions) != 6 {
		t.Fatalf("expected 6 tasks observed, got %d/%d", report.Submitted(), len(completions))
	}

	for seq := 0; seq < 6; seq++ {
		_, err := os.Stat(render.WorkspacePath(workDir, "run-1", seq))
		if seq == 2 {
			if err != nil {
				t.Fatalf("failed section workspace should be kept for inspection: %v", err)
			}
			continue
		}
		if !os.IsNotExist(err) {
			t.Fatalf("expected workspace %d removed, stat err=%v", seq, err)
		}
	}

	if err := pool.Submit(section(9)); !errors.Is(err, render.ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed after Wait, got %v", err)
	}
}

func TestPoolAbortPolicyStopsRemainingTasks(t *testing.T) {
	boom := errors.New("encoder crashed")
	renderer := render.RendererFunc(func(ctx context.Context, task render.Task) error {
		if task.Section.Sequence == 1 {
			return boom
		}
		return nil
	})
	pool, err := render.NewPool(context.Background(), renderer, render.Options{
		RunID:       "run-2",
		Parallelism: 1,
		QueueSize:   8,
		WorkDir:     t.TempDir(),
		Policy:      render.PolicyAbort,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	for seq := 0; seq < 5; seq++ {
		_ = pool.Submit(section(seq))
	}
	report := pool.Wait()

	if !errors.Is(report.Err, boom) {
		t.Fatalf("expected abort error wrapping the failure, got %v", report.Err)
	}
	if !slices.Equal(report.Completed, []int{0}) {
		t.Fatalf("unexpected completed %v", report.Completed)
	}
	if !slices.Equal(report.Failed, []int{1}) {
		t.Fatalf("unexpected failed %v", report.Failed)
	}
	for _, seq := range report.Skipped {
		if seq < 2 {
			t.Fatalf("section %d should not be skipped", seq)
		}
	}
}

func TestPoolKeepWorkspace(t *testing.T) {
	workDir := t.TempDir()
	pool, err := render.NewPool(context.Background(), render.RendererFunc(func(context.Context, render.Task) error { return nil }), render.Options{
		RunID:         "run-3",
		Parallelism:   2,
		WorkDir:       workDir,
		KeepWorkspace: true,
	}, nil)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if err := pool.Submit(section(0)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	pool.Wait()
	if _, err := os.Stat(render.WorkspacePath(workDir, "run-3", 0)); err != nil {
		t.Fatalf("expected workspace kept: %v", err)
	}
}

func TestPoolTasksGetIndependentSections(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]string{}
	pool, err := render.NewPool(context.Background(), render.RendererFunc(func(_ context.Context, task render.Task) error {
		mu.Lock()
		seen[task.Section.Sequence] = task.Section.Visible[0].DisplayName
		mu.Unlock()
		return nil
	}), render.Options{RunID: "run-4", Parallelism: 1, WorkDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	s := section(0)
	s.Visible[0].DisplayName = "before"
	if err := pool.Submit(s); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	s.Visible[0].DisplayName = "after"
	pool.Wait()
	if seen[0] != "before" {
		t.Fatalf("task observed caller mutation: %q", seen[0])
	}
}

func TestPoolParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool, err := render.NewPool(ctx, render.RendererFunc(func(context.Context, render.Task) error { return nil }), render.Options{
		RunID: "run-5", Parallelism: 1, WorkDir: t.TempDir(),
	}, nil)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	cancel()
	if err := pool.Submit(section(0)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation from Submit, got %v", err)
	}
	report := pool.Wait()
	if !errors.Is(report.Err, context.Canceled) {
		t.Fatalf("expected cancellation in report, got %v", report.Err)
	}
}

func TestNewPoolValidation(t *testing.T) {
	if _, err := render.NewPool(context.Background(), nil, render.Options{Parallelism: 1}, nil); err == nil {
		t.Fatal("expected error for nil renderer")
	}
	noop := render.RendererFunc(func(context.Context, render.Task) error { return nil })
	if _, err := render.NewPool(context.Background(), noop, render.Options{Parallelism: 0}, nil); err == nil {
		t.Fatal("expected error for zero parallelism")
	}
}

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		input string
		want  render.FailurePolicy
		err   bool
	}{
		{"", render.PolicyContinue, false},
		{"continue", render.PolicyContinue, false},
		{" ABORT ", render.PolicyAbort, false},
		{"retry", "", true},
	}
	for _, tt := range tests {
		got, err := render.ParseFailurePolicy(tt.input)
		if (err != nil) != tt.err || got != tt.want {
			t.Fatalf("ParseFailurePolicy(%q) = %q, %v", tt.input, got, err)
		}
	}
}

func TestManifestRendererWritesWorkspaceAndOutput(t *testing.T) {
	outDir := t.TempDir()
	workspace := filepath.Join(t.TempDir(), "section3")
	renderer := render.NewManifestRenderer(outDir, layout.Dimension{Width: 1280, Height: 720})

	s := section(3)
	s.Correction = -40
	if err := renderer.Render(context.Background(), render.Task{RunID: "run-6", Section: s, Workspace: workspace}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, path := range []string{
		filepath.Join(workspace, render.ManifestFile),
		filepath.Join(outDir, "sections", "section3.json"),
	} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		var m render.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if m.Sequence != 3 || m.StartMs != 300 || m.EndMs != 400 || m.RenderEndMs != 360 || m.RenderDurationMs != 60 {
			t.Fatalf("unexpected timing in manifest: %+v", m)
		}
		if len(m.Tiles) != 3 {
			t.Fatalf("expected 3 tiles, got %d", len(m.Tiles))
		}
		large := m.Tiles[0]
		if large.Role != render.RoleLarge || large.Size.Width != 1107 || large.Position.X != 86.5 {
			t.Fatalf("unexpected large tile %+v", large)
		}
		if m.Tiles[2].Role != render.RoleSmall || m.Tiles[2].ParticipantID != "b" || m.Tiles[2].Position.X != 661.5 {
			t.Fatalf("unexpected small tile %+v", m.Tiles[2])
		}
		if m.Tiles[2].AspectRatio != layout.AspectRatio4x3 {
			t.Fatalf("aspect ratio did not round trip: %v", m.Tiles[2].AspectRatio)
		}
	}
}

func TestExecRendererInvokesCommandWithManifest(t *testing.T) {
	manifest := render.NewManifestRenderer("", layout.Dimension{Width: 1280, Height: 720})
	renderer, err := render.NewExecRenderer(manifest, "compose-section --preset fast")
	if err != nil {
		t.Fatalf("NewExecRenderer: %v", err)
	}
	if renderer.Program() != "compose-section" {
		t.Fatalf("unexpected program %q", renderer.Program())
	}

	var gotName string
	var gotArgs []string
	renderer.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	workspace := t.TempDir()
	if err := renderer.Render(context.Background(), render.Task{RunID: "r", Section: section(0), Workspace: workspace}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{"--preset", "fast", filepath.Join(workspace, render.ManifestFile)}
	if gotName != "compose-section" || !slices.Equal(gotArgs, want) {
		t.Fatalf("unexpected invocation %s %v", gotName, gotArgs)
	}
}

func TestExecRendererWrapsToolFailure(t *testing.T) {
	manifest := render.NewManifestRenderer("", layout.Dimension{Width: 1280, Height: 720})
	renderer, err := render.NewExecRenderer(manifest, "compose-section")
	if err != nil {
		t.Fatalf("NewExecRenderer: %v", err)
	}
	renderer.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 2")
	})
	err = renderer.Render(context.Background(), render.Task{Section: section(5), Workspace: t.TempDir()})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "section 5") {
		t.Fatalf("expected section number in error, got %v", err)
	}
}

func TestNewExecRendererRequiresCommand(t *testing.T) {
	manifest := render.NewManifestRenderer("", layout.Dimension{})
	if _, err := render.NewExecRenderer(manifest, "   "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

package render

import (
	"context"
	"encoding/json"
	"path/filepath"

	"recplan/internal/fileutil"
	"recplan/internal/layout"
	"recplan/internal/participant"
	"recplan/internal/services"
	"recplan/internal/timeline"
)

// ManifestFile is the manifest name inside a section workspace.
const ManifestFile = "section.json"

// Tile roles in a manifest.
const (
	RoleLarge = "large"
	RoleSmall = "small"
)

// Manifest is the renderer-facing description of one section.
type Manifest struct {
	RunID            string           `json:"run_id"`
	Sequence         int              `json:"sequence"`
	StartMs          int64            `json:"start_ms"`
	EndMs            int64            `json:"end_ms"`
	CorrectionMs     int64            `json:"correction_ms"`
	RenderEndMs      int64            `json:"render_end_ms"`
	RenderDurationMs int64            `json:"render_duration_ms"`
	Canvas           layout.Dimension `json:"canvas"`
	Tiles            []ManifestTile   `json:"tiles"`
}

// ManifestTile places one participant video on the canvas.
type ManifestTile struct {
	Role          string             `json:"role"`
	ParticipantID string             `json:"participant_id"`
	DisplayName   string             `json:"display_name,omitempty"`
	Description   string             `json:"description,omitempty"`
	AspectRatio   layout.AspectRatio `json:"aspect_ratio"`
	JoinedAtMs    int64              `json:"joined_at_ms"`
	Size          layout.Dimension   `json:"size"`
	Position      layout.Point       `json:"position"`
	Media         any                `json:"media,omitempty"`
}

// BuildManifest lays out a section on a canvas. The large tile is centred
// horizontally at the top; small tiles follow the section geometry in order.
func BuildManifest(runID string, section timeline.Section, canvas layout.Dimension) Manifest {
	m := Manifest{
		RunID:            runID,
		Sequence:         section.Sequence,
		StartMs:          section.Start,
		EndMs:            section.End,
		CorrectionMs:     section.Correction,
		RenderEndMs:      section.RenderEnd(),
		RenderDurationMs: section.RenderDuration(),
		Canvas:           canvas,
		Tiles:            make([]ManifestTile, 0, len(section.Visible)),
	}
	small := 0
	for _, rec := range section.Visible {
		if rec.Speaking {
			m.Tiles = append(m.Tiles, tileFor(RoleLarge, rec, section.Large, layout.Point{
				X: float64(canvas.Width)/2 - float64(section.Large.Width)/2,
			}))
			continue
		}
		if small >= len(section.Small) || small >= len(section.Positions) {
			break
		}
		m.Tiles = append(m.Tiles, tileFor(RoleSmall, rec, section.Small[small], section.Positions[small]))
		small++
	}
	return m
}

func tileFor(role string, rec participant.Record, size layout.Dimension, pos layout.Point) ManifestTile {
	return ManifestTile{
		Role:          role,
		ParticipantID: rec.ID,
		DisplayName:   rec.DisplayName,
		Description:   rec.Description,
		AspectRatio:   rec.AspectRatio,
		JoinedAtMs:    rec.JoinedAt,
		Size:          size,
		Position:      pos,
		Media:         rec.Media,
	}
}

// ManifestRenderer writes section manifests for an external compositor. Each
// manifest is written into the task workspace and published under
// <OutputDir>/sections.
type ManifestRenderer struct {
	OutputDir string
	Canvas    layout.Dimension
}

// NewManifestRenderer builds a ManifestRenderer.
func NewManifestRenderer(outputDir string, canvas layout.Dimension) *ManifestRenderer {
	return &ManifestRenderer{OutputDir: outputDir, Canvas: canvas}
}

// SectionsDir is where published manifests are collected.
func (r *ManifestRenderer) SectionsDir() string {
	return filepath.Join(r.OutputDir, "sections")
}

// Render implements Renderer.
func (r *ManifestRenderer) Render(ctx context.Context, task Task) error {
	_, err := r.write(ctx, task)
	return err
}

// write stores the manifest and returns the workspace copy's path.
func (r *ManifestRenderer) write(ctx context.Context, task Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(BuildManifest(task.RunID, task.Section, r.Canvas), "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "render", "manifest", "encode section manifest", err)
	}
	data = append(data, '\n')

	local := filepath.Join(task.Workspace, ManifestFile)
	if err := fileutil.WriteFileAtomic(local, data); err != nil {
		return "", services.Wrap(services.ErrTransient, "render", "manifest", "write workspace manifest", err)
	}
	if r.OutputDir != "" {
		published := filepath.Join(r.SectionsDir(), SectionName(task.Section.Sequence)+".json")
		if err := fileutil.WriteFileAtomic(published, data); err != nil {
			return "", services.Wrap(services.ErrTransient, "render", "manifest", "publish section manifest", err)
		}
	}
	return local, nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"recplan/internal/logging"
	"recplan/internal/render"
	"recplan/internal/store"
	"recplan/internal/timeline"
)

// recorder mirrors pool task lifecycle into the store.
type recorder struct {
	ctx    context.Context
	store  *store.Store
	logger *slog.Logger
}

func (r *recorder) hooks() render.Hooks {
	if r == nil || r.store == nil {
		return render.Hooks{}
	}
	return render.Hooks{
		OnSubmit:   r.submitted,
		OnComplete: r.completed,
	}
}

func (r *recorder) submitted(runID string, section timeline.Section) {
	tiles, err := json.Marshal(section.Visible)
	if err != nil {
		tiles = nil
	}
	if err := r.store.RecordSection(r.ctx, store.Section{
		RunID:        runID,
		Sequence:     section.Sequence,
		StartMs:      section.Start,
		EndMs:        section.End,
		CorrectionMs: section.Correction,
		Tiles:        tiles,
		Status:       store.SectionPending,
	}); err != nil {
		r.warn(section.Sequence, err)
	}
}

func (r *recorder) completed(runID string, sequence int, renderErr error) {
	status := store.SectionRendered
	message := ""
	switch {
	case errors.Is(renderErr, context.Canceled):
		status = store.SectionSkipped
	case renderErr != nil:
		status = store.SectionFailed
		message = renderErr.Error()
	}
	if err := r.store.MarkSection(r.ctx, runID, sequence, status, message); err != nil {
		r.warn(sequence, err)
	}
}

func (r *recorder) warn(sequence int, err error) {
	logging.WarnWithContext(r.logger, "failed to persist section status", "section_persist_failed",
		logging.Int(logging.FieldSection, sequence),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the state directory is writable"),
		logging.String(logging.FieldImpact, "run history is incomplete"),
	)
}

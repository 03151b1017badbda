package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	sectionKey contextKey = "section"
	phaseKey   contextKey = "phase"
)

// WithRunID annotates context with the segmentation run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// WithSection annotates context with a section sequence number.
func WithSection(ctx context.Context, sequence int) context.Context {
	return context.WithValue(ctx, sectionKey, sequence)
}

// SectionFromContext returns the section sequence number if present.
func SectionFromContext(ctx context.Context) (int, bool) {
	seq, ok := ctx.Value(sectionKey).(int)
	return seq, ok
}

// WithPhase annotates context with the pipeline phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if phase, ok := ctx.Value(phaseKey).(string); ok && phase != "" {
		return phase, true
	}
	return "", false
}

package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"recplan/internal/layout"
	"recplan/internal/logging"
	"recplan/internal/participant"
	"recplan/internal/services"
)

// ErrNoEvents reports an empty event list. It is returned before any state is
// built.
var ErrNoEvents = errors.New("no timeline events")

// StopReason records why a pass ended.
type StopReason int

const (
	// StopExhausted means every event was consumed.
	StopExhausted StopReason = iota
	// StopStageEmpty means the last visible participant left.
	StopStageEmpty
	// StopOtherEvent means an event of type Other ended the pass early.
	StopOtherEvent
	// StopNoStart means no participant ever started.
	StopNoStart
)

func (r StopReason) String() string {
	switch r {
	case StopStageEmpty:
		return "stage_empty"
	case StopOtherEvent:
		return "other_event"
	case StopNoStart:
		return "no_start"
	default:
		return "exhausted"
	}
}

// Options configures a Segmenter.
type Options struct {
	// Capacity is the maximum number of participants on stage.
	Capacity int
	// MinSectionDuration is the smallest gap in milliseconds that closes a
	// section. Shorter gaps are absorbed into the following section.
	MinSectionDuration int64
	// FPS is the output frame rate used for boundary quantization.
	FPS int
	// Layout computes tile geometry for each composition.
	Layout layout.Strategy
}

// FrameDuration returns the length of one output frame in whole milliseconds.
func (o Options) FrameDuration() int64 {
	if o.FPS <= 0 {
		return 0
	}
	return int64(1000 / o.FPS)
}

func (o Options) validate() error {
	switch {
	case o.Capacity < 1:
		return fmt.Errorf("capacity must be positive, got %d", o.Capacity)
	case o.FPS < 1 || o.FPS > 1000:
		return fmt.Errorf("fps must be between 1 and 1000, got %d", o.FPS)
	case o.MinSectionDuration < 0:
		return fmt.Errorf("minimum section duration must be non-negative, got %d", o.MinSectionDuration)
	case o.Layout == nil:
		return errors.New("layout strategy is required")
	}
	return nil
}

// Result summarizes a completed pass.
type Result struct {
	Sections []Section
	// LastBoundary is the end of the final section; sections tile
	// [0, LastBoundary).
	LastBoundary int64
	// QuantizationCarry is the rounding remainder left uncompensated.
	QuantizationCarry int64
	// TotalCorrection is the sum of every section's Correction.
	TotalCorrection int64
	Stopped         StopReason
	// Absorbed counts events that fell inside the minimum section duration.
	Absorbed int
	// Skipped counts events before the first participant start.
	Skipped int
	// Applied counts events replayed against the window.
	Applied int
}

// DispatchFunc receives each closed section. It owns the value it is given.
// A returned error aborts the pass.
type DispatchFunc func(Section) error

// Segmenter runs the segmentation pass. A Segmenter holds no state between
// runs and may be reused.
type Segmenter struct {
	opts   Options
	logger *slog.Logger
}

// NewSegmenter validates opts and builds a Segmenter.
func NewSegmenter(opts Options, logger *slog.Logger) (*Segmenter, error) {
	if err := opts.validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "segment", "configure", "invalid segmenter options", err)
	}
	return &Segmenter{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "segmenter"),
	}, nil
}

// pass carries the mutable state of one Run.
type pass struct {
	window       *participant.Window
	current      Section
	started      bool
	first        int64
	lastBoundary int64
	sequence     int
	carry        int64
}

// Run replays events in order and dispatches each section as soon as it is
// closed. Events are expected to be sorted by instant (see SortEvents).
func (s *Segmenter) Run(ctx context.Context, events []Event, dispatch DispatchFunc) (Result, error) {
	if len(events) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "segment", "start", "event list is empty", ErrNoEvents)
	}

	frame := s.opts.FrameDuration()
	p := &pass{window: participant.NewWindow(s.opts.Capacity, s.logger)}
	result := Result{Stopped: StopExhausted}

loop:
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			s.finish(p, &result)
			return result, err
		}

		if !p.started {
			if ev.Type != EventStarted {
				result.Skipped++
				continue
			}
			p.started = true
			p.first = ev.Instant
		}

		rel := ev.Instant - p.first
		gap := rel - p.lastBoundary
		switch {
		case gap > 0 && gap >= s.opts.MinSectionDuration:
			p.carry += gap % frame
			var correction int64
			if p.carry > frame {
				correction = -frame
				p.carry -= frame
			}
			section := p.current.Clone()
			section.Sequence = p.sequence
			section.Start = p.lastBoundary
			section.End = rel
			section.Correction = correction

			result.Sections = append(result.Sections, section)
			result.TotalCorrection += correction
			s.logger.Debug("section closed",
				logging.Int(logging.FieldSection, section.Sequence),
				logging.Int64("start_ms", section.Start),
				logging.Int64("end_ms", section.End),
				logging.Int64("correction_ms", correction),
				logging.Int("tiles", len(section.Visible)),
			)
			if dispatch != nil {
				if err := dispatch(section.Clone()); err != nil {
					s.finish(p, &result)
					return result, fmt.Errorf("dispatch section %d: %w", section.Sequence, err)
				}
			}
			p.sequence++
			p.lastBoundary = rel
		case gap > 0:
			result.Absorbed++
			s.logger.Debug("event absorbed into current section",
				logging.String(logging.FieldEventType, ev.Type.String()),
				logging.String(logging.FieldParticipantID, ev.ParticipantID),
				logging.Int64("gap_ms", gap),
			)
		case gap < 0:
			logging.WarnWithContext(s.logger, "event precedes last section boundary", "event_out_of_order",
				logging.String(logging.FieldParticipantID, ev.ParticipantID),
				logging.Int64("instant_ms", rel),
				logging.Int64("boundary_ms", p.lastBoundary),
				logging.String(logging.FieldErrorHint, "sort events by instant before segmenting"),
				logging.String(logging.FieldImpact, "event applied without a boundary"),
			)
		}

		switch ev.Type {
		case EventStarted:
			p.window.Add(participant.Record{
				ID:            ev.ParticipantID,
				AspectRatio:   ev.AspectRatio,
				JoinedAt:      rel,
				LastActiveAt:  rel,
				DisplayName:   ev.DisplayName,
				Description:   ev.Description,
				ExclusiveView: ev.ExclusiveView,
				Media:         ev.Media,
			})
		case EventEnded:
			p.window.Remove(ev.ParticipantID)
		case EventSpeakerChanged:
			p.window.ChangeSpeaker(ev.ParticipantID, rel)
		default:
			result.Stopped = StopOtherEvent
			s.logger.Info("pass stopped by terminal event", logging.Int64("instant_ms", rel))
			break loop
		}
		result.Applied++

		p.current = s.compose(p.window)
		if p.window.Empty() {
			result.Stopped = StopStageEmpty
			break loop
		}
	}

	if !p.started {
		result.Stopped = StopNoStart
		logging.WarnWithContext(s.logger, "no participant start found", "timeline_no_start",
			logging.Int("events", len(events)),
			logging.String(logging.FieldErrorHint, "check that the metadata lists video start events"),
			logging.String(logging.FieldImpact, "no sections produced"),
		)
	}
	s.finish(p, &result)
	return result, nil
}

func (s *Segmenter) finish(p *pass, result *Result) {
	result.LastBoundary = p.lastBoundary
	result.QuantizationCarry = p.carry
}

// compose snapshots the window and lays it out.
func (s *Segmenter) compose(window *participant.Window) Section {
	visible := participant.ApplyExclusiveView(window.Snapshot())
	shape := s.opts.Layout.Compute(participant.Tiles(visible))
	return Section{
		Visible:   visible,
		Large:     shape.Large,
		Small:     shape.Small,
		Positions: shape.Positions,
	}
}

package timeline_test

import (
	"context"
	"errors"
	"testing"

	"recplan/internal/layout"
	"recplan/internal/logging"
	"recplan/internal/services"
	"recplan/internal/timeline"
)

func newSegmenter(t *testing.T, capacity int, minDuration int64) *timeline.Segmenter {
	t.Helper()
	seg, err := timeline.NewSegmenter(timeline.Options{
		Capacity:           capacity,
		MinSectionDuration: minDuration,
		FPS:                25,
		Layout:             layout.NewSpeakerStrip(1280, 720, 97),
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	return seg
}

func started(id string, instant int64, ratio layout.AspectRatio) timeline.Event {
	return timeline.Event{Type: timeline.EventStarted, Instant: instant, ParticipantID: id, AspectRatio: ratio}
}

func ended(id string, instant int64) timeline.Event {
	return timeline.Event{Type: timeline.EventEnded, Instant: instant, ParticipantID: id}
}

func speaker(id string, instant int64) timeline.Event {
	return timeline.Event{Type: timeline.EventSpeakerChanged, Instant: instant, ParticipantID: id}
}

func TestSegmenterScenarioTwoParticipants(t *testing.T) {
	seg := newSegmenter(t, 2, 100)
	events := []timeline.Event{
		started("A", 0, layout.AspectRatio16x9),
		started("B", 200, layout.AspectRatio4x3),
		speaker("B", 250),
		ended("A", 400),
	}

	var dispatched []timeline.Section
	result, err := seg.Run(context.Background(), events, func(s timeline.Section) error {
		dispatched = append(dispatched, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(result.Sections))
	}
	if len(dispatched) != 2 {
		t.Fatalf("expected 2 dispatched sections, got %d", len(dispatched))
	}
	first, second := result.Sections[0], result.Sections[1]
	if first.Start != 0 || first.End != 200 || first.Sequence != 0 {
		t.Fatalf("unexpected first section %+v", first)
	}
	if second.Start != 200 || second.End != 400 || second.Sequence != 1 {
		t.Fatalf("unexpected second section %+v", second)
	}
	if result.Absorbed != 1 {
		t.Fatalf("expected the 250 speaker change to be absorbed, got %d", result.Absorbed)
	}

	if len(first.Visible) != 1 || first.Visible[0].ID != "A" || !first.Visible[0].Speaking {
		t.Fatalf("expected A alone as large tile in first section, got %+v", first.Visible)
	}
	if first.Large != (layout.Dimension{Width: 1280, Height: 720}) {
		t.Fatalf("unexpected solo large tile %+v", first.Large)
	}

	sp, ok := second.Speaker()
	if !ok || sp.ID != "B" {
		t.Fatalf("expected B speaking in second section, got %+v", second.Visible)
	}
	if len(second.Visible) != 3 {
		t.Fatalf("expected large B plus two thumbnails, got %d", len(second.Visible))
	}
	if len(second.Small) != 2 || len(second.Positions) != 2 {
		t.Fatalf("expected two small tiles, got %d/%d", len(second.Small), len(second.Positions))
	}
	if result.Stopped != timeline.StopExhausted {
		t.Fatalf("expected exhausted stop, got %s", result.Stopped)
	}
	if result.LastBoundary != 400 {
		t.Fatalf("unexpected last boundary %d", result.LastBoundary)
	}
}

func TestSegmenterEmptyEventsIsValidationError(t *testing.T) {
	seg := newSegmenter(t, 7, 50)
	_, err := seg.Run(context.Background(), nil, nil)
	if !errors.Is(err, timeline.ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestNewSegmenterRejectsBadOptions(t *testing.T) {
	tests := []timeline.Options{
		{Capacity: 0, FPS: 25, Layout: layout.NewSpeakerStrip(1, 1, 1)},
		{Capacity: 2, FPS: 0, Layout: layout.NewSpeakerStrip(1, 1, 1)},
		{Capacity: 2, FPS: 2000, Layout: layout.NewSpeakerStrip(1, 1, 1)},
		{Capacity: 2, FPS: 25, MinSectionDuration: -1, Layout: layout.NewSpeakerStrip(1, 1, 1)},
		{Capacity: 2, FPS: 25},
	}
	for i, opts := range tests {
		if _, err := timeline.NewSegmenter(opts, nil); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("case %d: expected configuration error, got %v", i, err)
		}
	}
}

func TestSegmenterSkipsEventsBeforeFirstStart(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	events := []timeline.Event{
		speaker("X", 900),
		ended("X", 950),
		started("A", 1000, layout.AspectRatio16x9),
		started("B", 1100, layout.AspectRatio16x9),
		ended("B", 1300),
		ended("A", 1500),
	}
	result, err := seg.Run(context.Background(), events, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Skipped != 2 {
		t.Fatalf("expected 2 skipped events, got %d", result.Skipped)
	}
	want := [][2]int64{{0, 100}, {100, 300}, {300, 500}}
	if len(result.Sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(result.Sections))
	}
	for i, w := range want {
		if result.Sections[i].Start != w[0] || result.Sections[i].End != w[1] {
			t.Fatalf("section %d = [%d,%d), want [%d,%d)", i, result.Sections[i].Start, result.Sections[i].End, w[0], w[1])
		}
	}
	if result.Stopped != timeline.StopStageEmpty {
		t.Fatalf("expected stage-empty stop, got %s", result.Stopped)
	}
}

func TestSegmenterStopsOnEmptyStage(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	events := []timeline.Event{
		started("A", 0, layout.AspectRatio16x9),
		ended("A", 500),
		started("B", 700, layout.AspectRatio16x9),
		ended("B", 900),
	}
	result, err := seg.Run(context.Background(), events, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Sections) != 1 {
		t.Fatalf("expected pass to end when A leaves, got %d sections", len(result.Sections))
	}
	if result.Applied != 2 {
		t.Fatalf("expected 2 applied events, got %d", result.Applied)
	}
	if result.Stopped != timeline.StopStageEmpty {
		t.Fatalf("unexpected stop reason %s", result.Stopped)
	}
}

func TestSegmenterOtherEventStopsPass(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	events := []timeline.Event{
		started("A", 0, layout.AspectRatio16x9),
		started("B", 100, layout.AspectRatio16x9),
		{Type: timeline.EventOther, Instant: 300},
		ended("B", 600),
		ended("A", 800),
	}
	result, err := seg.Run(context.Background(), events, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stopped != timeline.StopOtherEvent {
		t.Fatalf("expected other-event stop, got %s", result.Stopped)
	}
	if len(result.Sections) != 2 || result.LastBoundary != 300 {
		t.Fatalf("expected sections up to 300, got %d ending at %d", len(result.Sections), result.LastBoundary)
	}
}

func TestSegmenterNoStartedEvent(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	result, err := seg.Run(context.Background(), []timeline.Event{speaker("A", 10), ended("A", 20)}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stopped != timeline.StopNoStart || len(result.Sections) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSegmenterSectionsTileWithoutGaps(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	events := []timeline.Event{
		started("A", 1000, layout.AspectRatio16x9),
		started("B", 1013, layout.AspectRatio4x3),
		started("C", 1137, layout.AspectRatio16x9),
		speaker("C", 1170),
		started("D", 1421, layout.AspectRatio4x3),
		speaker("D", 1690),
		speaker("B", 1711),
		ended("C", 2033),
		speaker("A", 2555),
		ended("D", 2600),
		ended("B", 3010),
		ended("A", 3999),
	}
	result, err := seg.Run(context.Background(), events, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var cursor int64
	for i, section := range result.Sections {
		if section.Sequence != i {
			t.Fatalf("section %d has sequence %d", i, section.Sequence)
		}
		if section.Start != cursor {
			t.Fatalf("section %d starts at %d, want %d", i, section.Start, cursor)
		}
		if section.Duration() < 50 {
			t.Fatalf("section %d shorter than minimum: %d", i, section.Duration())
		}
		cursor = section.End
		speakers := 0
		for _, rec := range section.Visible {
			if rec.Speaking {
				speakers++
			}
		}
		if speakers > 1 {
			t.Fatalf("section %d has %d speakers", i, speakers)
		}
		if len(section.Visible) > 3+1 {
			t.Fatalf("section %d shows %d tiles with capacity 3", i, len(section.Visible))
		}
	}
	if cursor != result.LastBoundary {
		t.Fatalf("sections end at %d, last boundary %d", cursor, result.LastBoundary)
	}
	if result.LastBoundary != 2999 {
		t.Fatalf("unexpected last boundary %d", result.LastBoundary)
	}
}

func TestSegmenterQuantizationCompensation(t *testing.T) {
	seg := newSegmenter(t, 2, 50)
	frame := int64(40)
	events := []timeline.Event{started("A", 0, layout.AspectRatio16x9)}
	var remainder int64
	var instant int64
	for i := 0; i < 12; i++ {
		gap := int64(130 + 7*i)
		instant += gap
		remainder += gap % frame
		events = append(events, speaker("A", instant))
	}
	// The final gap is below the minimum and is absorbed.
	events = append(events, ended("A", instant+frame))

	result, err := seg.Run(context.Background(), events, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var total int64
	for _, section := range result.Sections {
		if section.Correction != 0 && section.Correction != -frame {
			t.Fatalf("unexpected correction %d", section.Correction)
		}
		if section.RenderEnd() != section.End+section.Correction {
			t.Fatalf("render end mismatch for %+v", section)
		}
		total += section.Correction
	}
	if total != result.TotalCorrection {
		t.Fatalf("total correction %d, result reports %d", total, result.TotalCorrection)
	}
	if total == 0 {
		t.Fatal("expected at least one correction")
	}
	if diff := remainder + total; diff < 0 || diff > frame {
		t.Fatalf("corrections %d not within one frame of remainder %d", total, remainder)
	}
	if result.QuantizationCarry != remainder+total {
		t.Fatalf("carry %d, want %d", result.QuantizationCarry, remainder+total)
	}
}

func TestSegmenterDispatchReceivesIndependentCopies(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	events := []timeline.Event{
		started("A", 0, layout.AspectRatio16x9),
		started("B", 100, layout.AspectRatio16x9),
		ended("A", 200),
		ended("B", 300),
	}
	var dispatched []timeline.Section
	result, err := seg.Run(context.Background(), events, func(s timeline.Section) error {
		for i := range s.Visible {
			s.Visible[i].DisplayName = "mutated"
		}
		dispatched = append(dispatched, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, section := range result.Sections {
		for _, rec := range section.Visible {
			if rec.DisplayName == "mutated" {
				t.Fatalf("dispatcher mutation leaked into result section %d", section.Sequence)
			}
		}
	}
	if len(dispatched) != len(result.Sections) {
		t.Fatalf("dispatched %d of %d sections", len(dispatched), len(result.Sections))
	}
}

func TestSegmenterDispatchErrorAborts(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	events := []timeline.Event{
		started("A", 0, layout.AspectRatio16x9),
		started("B", 100, layout.AspectRatio16x9),
		ended("A", 200),
		ended("B", 300),
	}
	boom := errors.New("queue closed")
	result, err := seg.Run(context.Background(), events, func(timeline.Section) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	if len(result.Sections) != 1 {
		t.Fatalf("expected the failing section to be recorded, got %d", len(result.Sections))
	}
}

func TestSegmenterHonoursCancellation(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := seg.Run(ctx, []timeline.Event{started("A", 0, layout.AspectRatio16x9)}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestSegmenterExclusiveViewCollapsesSection(t *testing.T) {
	seg := newSegmenter(t, 3, 50)
	host := started("host", 0, layout.AspectRatio16x9)
	host.ExclusiveView = true
	events := []timeline.Event{
		host,
		started("guest", 0, layout.AspectRatio4x3),
		ended("guest", 500),
		ended("host", 700),
	}
	result, err := seg.Run(context.Background(), events, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := result.Sections[0]
	if len(first.Visible) != 1 || first.Visible[0].ID != "host" {
		t.Fatalf("expected exclusive host view, got %+v", first.Visible)
	}
	if len(first.Small) != 0 {
		t.Fatalf("expected no small tiles, got %d", len(first.Small))
	}
}

func TestSortEventsIsStable(t *testing.T) {
	events := []timeline.Event{
		ended("B", 300),
		started("A", 100, layout.AspectRatio16x9),
		speaker("A", 300),
		started("B", 100, layout.AspectRatio16x9),
	}
	timeline.SortEvents(events)
	want := []string{"A", "B", "B", "A"}
	for i, ev := range events {
		if ev.ParticipantID != want[i] {
			t.Fatalf("position %d = %s, want %s", i, ev.ParticipantID, want[i])
		}
	}
	if events[2].Type != timeline.EventEnded || events[3].Type != timeline.EventSpeakerChanged {
		t.Fatal("ties must keep input order")
	}
}

func TestParseEventType(t *testing.T) {
	tests := map[string]timeline.EventType{
		"RECORDING_STARTED": timeline.EventStarted,
		"recording_ended":   timeline.EventEnded,
		"SPEAKER_CHANGED":   timeline.EventSpeakerChanged,
		"OTHER":             timeline.EventOther,
		"":                  timeline.EventOther,
	}
	for input, want := range tests {
		if got := timeline.ParseEventType(input); got != want {
			t.Fatalf("ParseEventType(%q) = %s, want %s", input, got, want)
		}
	}
}

package timeline

import (
	"cmp"
	"slices"
	"strings"

	"recplan/internal/layout"
)

// EventType classifies a recorder event.
type EventType int

const (
	EventOther EventType = iota
	EventStarted
	EventEnded
	EventSpeakerChanged
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventEnded:
		return "ended"
	case EventSpeakerChanged:
		return "speaker_changed"
	default:
		return "other"
	}
}

// ParseEventType maps recorder type names onto event types. Unknown names are
// reported as EventOther.
func ParseEventType(value string) EventType {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "RECORDING_STARTED", "STARTED":
		return EventStarted
	case "RECORDING_ENDED", "ENDED":
		return EventEnded
	case "SPEAKER_CHANGED":
		return EventSpeakerChanged
	default:
		return EventOther
	}
}

// Event is a single participant lifecycle or speaker change at an absolute
// instant in milliseconds.
type Event struct {
	Type          EventType
	Instant       int64
	ParticipantID string
	AspectRatio   layout.AspectRatio
	DisplayName   string
	Description   string
	ExclusiveView bool
	Media         any
}

// SortEvents orders events by instant. Events sharing an instant keep their
// input order.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.Instant, b.Instant)
	})
}

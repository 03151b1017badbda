package participant

import (
	"log/slog"

	"recplan/internal/logging"
)

// Window is the active participant manager: a registry of everyone in the
// call and a stage of at most capacity members.
type Window struct {
	capacity int
	registry []*Record
	stage    []*Record
	logger   *slog.Logger
}

// NewWindow creates an empty window. Capacities below one are raised to one.
func NewWindow(capacity int, logger *slog.Logger) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		logger:   logging.NewComponentLogger(logger, "window"),
	}
}

// Capacity returns the maximum stage size.
func (w *Window) Capacity() int { return w.capacity }

// Len returns the number of stage members.
func (w *Window) Len() int { return len(w.stage) }

// Registered returns the number of known participants, on stage or not.
func (w *Window) Registered() int { return len(w.registry) }

// Empty reports whether nobody is on stage.
func (w *Window) Empty() bool { return len(w.stage) == 0 }

// OnStage reports whether id is currently visible.
func (w *Window) OnStage(id string) bool { return stageIndex(w.stage, id) >= 0 }

// Speaker returns a copy of the current speaker.
func (w *Window) Speaker() (Record, bool) {
	for _, rec := range w.stage {
		if rec.Speaking {
			return rec.Clone(), true
		}
	}
	return Record{}, false
}

// Add registers a participant. The first member on an empty stage becomes the
// speaker; otherwise the joiner takes a free slot or replaces the most idle
// non-speaking stage member. Re-adding a known id is ignored.
func (w *Window) Add(rec Record) bool {
	if registryIndex(w.registry, rec.ID) >= 0 {
		logging.WarnWithContext(w.logger, "participant already registered", "participant_duplicate",
			logging.String(logging.FieldParticipantID, rec.ID),
			logging.String(logging.FieldErrorHint, "check the metadata for a repeated start event"),
			logging.String(logging.FieldImpact, "start event ignored"),
		)
		return false
	}

	p := rec.Clone()
	p.Speaking = false
	entry := &p
	w.registry = append(w.registry, entry)

	switch {
	case len(w.stage) == 0:
		entry.Speaking = true
		w.stage = append(w.stage, entry)
	case len(w.stage) < w.capacity:
		w.stage = append(w.stage, entry)
	default:
		idx := w.mostIdleNonSpeaker()
		if idx < 0 {
			w.logger.Debug("stage full of speakers; participant kept off stage",
				logging.String(logging.FieldParticipantID, rec.ID),
			)
			return true
		}
		w.logger.Debug("participant evicted from stage",
			logging.String(logging.FieldParticipantID, w.stage[idx].ID),
			logging.String("replaced_by", rec.ID),
		)
		w.stage[idx] = entry
	}
	return true
}

// Remove drops a participant. A departing speaker hands the floor to the most
// recently active non-speaker, and the freed slot is backfilled from the
// off-stage participants when any exist. Unknown ids are ignored.
func (w *Window) Remove(id string) bool {
	regIdx := registryIndex(w.registry, id)
	if regIdx < 0 {
		logging.WarnWithContext(w.logger, "cannot remove unknown participant", "participant_unknown",
			logging.String(logging.FieldParticipantID, id),
			logging.String(logging.FieldErrorHint, "check the metadata for an end event without a start"),
			logging.String(logging.FieldImpact, "end event ignored"),
		)
		return false
	}
	w.registry = append(w.registry[:regIdx], w.registry[regIdx+1:]...)

	stIdx := stageIndex(w.stage, id)
	if stIdx < 0 {
		return true
	}
	if len(w.stage) == 1 {
		w.stage = w.stage[:0]
		return true
	}

	if w.stage[stIdx].Speaking {
		w.stage[stIdx].Speaking = false
		if next := w.mostRecentNonSpeaker(stIdx); next >= 0 {
			w.stage[next].Speaking = true
		}
	}

	if backfill := w.mostRecentOffStage(); backfill != nil {
		w.stage[stIdx] = backfill
		return true
	}
	w.stage = append(w.stage[:stIdx], w.stage[stIdx+1:]...)
	return true
}

// ChangeSpeaker hands the floor to id at the given instant. An off-stage id
// first replaces the most idle non-speaking stage member. The previous speaker
// records instant as its last activity.
func (w *Window) ChangeSpeaker(id string, instant int64) bool {
	regIdx := registryIndex(w.registry, id)
	if regIdx < 0 {
		logging.WarnWithContext(w.logger, "not changing speaker; participant not found", "participant_unknown",
			logging.String(logging.FieldParticipantID, id),
			logging.Int64("instant_ms", instant),
			logging.String(logging.FieldErrorHint, "check the metadata for a speaker event without a start"),
			logging.String(logging.FieldImpact, "speaker change ignored"),
		)
		return false
	}
	target := w.registry[regIdx]
	if target.Speaking {
		return false
	}

	if stageIndex(w.stage, id) < 0 {
		if len(w.stage) < w.capacity {
			w.stage = append(w.stage, target)
		} else {
			idx := w.mostIdleNonSpeaker()
			if idx < 0 {
				logging.WarnWithContext(w.logger, "not changing speaker; no stage slot can be freed", "speaker_change_skipped",
					logging.String(logging.FieldParticipantID, id),
					logging.Int("capacity", w.capacity),
					logging.String(logging.FieldErrorHint, "raise timeline.active_window_capacity"),
					logging.String(logging.FieldImpact, "speaker change ignored"),
				)
				return false
			}
			w.stage[idx] = target
		}
	}

	for _, rec := range w.registry {
		if rec.Speaking {
			rec.LastActiveAt = instant
			rec.Speaking = false
		}
	}
	target.Speaking = true
	return true
}

// Snapshot returns deep copies of the visible tiles. With more than one stage
// member every member is listed as a small tile in stage order, including the
// speaker; the speaker is additionally prepended as the large tile.
func (w *Window) Snapshot() []Record {
	if len(w.stage) == 0 {
		return []Record{}
	}
	out := make([]Record, 0, len(w.stage)+1)
	for _, rec := range w.stage {
		if rec.Speaking {
			out = append(out, rec.Clone())
			break
		}
	}
	if len(w.stage) > 1 {
		for _, rec := range w.stage {
			small := rec.Clone()
			small.Speaking = false
			out = append(out, small)
		}
	}
	return out
}

// ApplyExclusiveView collapses a snapshot to the large speaker tile when that
// speaker asked for other videos to be hidden.
func ApplyExclusiveView(snapshot []Record) []Record {
	for _, rec := range snapshot {
		if rec.Speaking && rec.ExclusiveView {
			return []Record{rec.Clone()}
		}
	}
	return snapshot
}

func (w *Window) mostIdleNonSpeaker() int {
	idx := -1
	for i, rec := range w.stage {
		if rec.Speaking {
			continue
		}
		if idx < 0 || rec.LastActiveAt < w.stage[idx].LastActiveAt {
			idx = i
		}
	}
	return idx
}

func (w *Window) mostRecentNonSpeaker(skip int) int {
	idx := -1
	for i, rec := range w.stage {
		if i == skip || rec.Speaking {
			continue
		}
		if idx < 0 || rec.LastActiveAt > w.stage[idx].LastActiveAt {
			idx = i
		}
	}
	return idx
}

func (w *Window) mostRecentOffStage() *Record {
	var best *Record
	for _, rec := range w.registry {
		if stageIndex(w.stage, rec.ID) >= 0 {
			continue
		}
		if best == nil || rec.LastActiveAt > best.LastActiveAt {
			best = rec
		}
	}
	return best
}

func registryIndex(records []*Record, id string) int {
	for i, rec := range records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func stageIndex(records []*Record, id string) int {
	return registryIndex(records, id)
}

package timeline

import (
	"slices"

	"recplan/internal/layout"
	"recplan/internal/participant"
)

// Section is a time range with a fixed visible composition. Start and End are
// relative to the first participant start and tile the timeline without gaps.
// Correction is zero or minus one frame and compensates the rounding that
// per-section trimming accumulates.
type Section struct {
	Sequence   int                  `json:"sequence"`
	Start      int64                `json:"start_ms"`
	End        int64                `json:"end_ms"`
	Correction int64                `json:"correction_ms"`
	Visible    []participant.Record `json:"visible"`
	Large      layout.Dimension     `json:"large"`
	Small      []layout.Dimension   `json:"small"`
	Positions  []layout.Point       `json:"positions"`
}

// Duration is the contiguous length of the section.
func (s Section) Duration() int64 { return s.End - s.Start }

// RenderEnd is the end instant a renderer should trim to.
func (s Section) RenderEnd() int64 { return s.End + s.Correction }

// RenderDuration is the corrected length to render.
func (s Section) RenderDuration() int64 { return s.RenderEnd() - s.Start }

// Speaker returns the large tile entry if the section has one.
func (s Section) Speaker() (participant.Record, bool) {
	for _, rec := range s.Visible {
		if rec.Speaking {
			return rec, true
		}
	}
	return participant.Record{}, false
}

// Clone returns a deep copy that shares no slices with s.
func (s Section) Clone() Section {
	out := s
	out.Visible = make([]participant.Record, len(s.Visible))
	for i, rec := range s.Visible {
		out.Visible[i] = rec.Clone()
	}
	out.Small = slices.Clone(s.Small)
	out.Positions = slices.Clone(s.Positions)
	return out
}

// Package timeline turns a recorder's participant event log into an ordered,
// gapless list of sections.
//
// A Segmenter replays events through a participant.Window in a single pass.
// Whenever the time since the previous boundary reaches the minimum section
// duration, the composition that was on screen since that boundary is closed
// as a Section and handed to the dispatcher. Boundaries stay contiguous; the
// per-section frame quantization compensation is carried separately in
// Section.Correction so renderers can trim against RenderEnd.
//
// Each Run owns its own state, so independent timelines can be segmented
// concurrently.
package timeline

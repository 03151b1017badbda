// Package ingest reads recorder metadata and turns it into a sorted timeline
// event list.
//
// Recorders log a start and an end event per participant video file plus
// speaker changes. End events are unreliable, so the loader drops them and
// synthesizes a replacement from the real length of each recording: the
// durationMs field when present, otherwise an ffprobe inspection when probing
// is enabled, otherwise the recorded end event as a last resort. Starts whose
// length cannot be determined are dropped. Leading speaker changes are
// discarded before anything else because they reference nobody on screen.
//
// Display names come from the optional endpoints file and fall back to the
// participant name carried by the event.
package ingest

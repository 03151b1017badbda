// Package pipeline runs one planning pass end to end.
//
// A run takes the output directory lock, records itself in the store,
// checks its inputs, ingests the recorder metadata, replays the timeline
// through the segmenter and hands each closed section to the render pool.
// The run's terminal status is derived from the first fatal error or, when
// the pool kept going past failures, from the pool report.
//
// Each phase emits a "phase complete" log line with event_type
// phase_complete and its duration so slow runs can be traced from the logs.
package pipeline

// Package render dispatches closed sections to a rendering backend.
//
// A Pool runs a fixed number of workers. Each task receives a deep-copied
// section and its own workspace directory keyed by sequence number, so tasks
// never share mutable state and may finish in any order. Wait is the barrier
// later stages block on before concatenating output.
//
// Failed tasks are handled according to a FailurePolicy: continue logs the
// failure and keeps rendering the remaining sections, abort cancels every
// outstanding task and reports the first failure from Wait.
//
// Pixel work is out of process. ManifestRenderer writes a JSON description of
// each section for an external compositor, and ExecRenderer additionally runs
// a configured command against that manifest.
package render

// Package logging assembles the structured slog loggers used by recplan.
//
// It owns the console and JSON handlers, maps configuration onto output
// files, and exposes context-aware helpers so that segmentation and render
// code automatically tag log lines with the run identifier and section
// sequence number. A no-op logger is provided for tests and for components
// constructed without one.
package logging

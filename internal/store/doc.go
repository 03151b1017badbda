// Package store persists planning runs and their sections in SQLite.
//
// Each run row records the metadata file it was planned from, its lifecycle
// status and counters. Section rows carry the boundaries, frame correction,
// visible tiles and per-section render status so that `recplan runs` and
// `recplan sections` can report on past work without re-planning.
package store

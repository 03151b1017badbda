// Package config loads, normalizes, and validates recplan configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// RECPLAN_RENDER_COMMAND. The Config type centralizes every knob the planner
// and CLI need: timeline quantization, active window capacity, canvas
// geometry, render dispatch and ingest options.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

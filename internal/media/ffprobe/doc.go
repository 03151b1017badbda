// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Prober: runs ffprobe with an injectable command runner
//   - Result: parsed ffprobe output containing streams and format metadata
//
// The ingest layer uses DurationMillis to synthesize the end of a
// participant recording when the metadata does not carry its length.
package ffprobe

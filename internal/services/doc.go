// Package services defines shared helpers consumed by the pipeline phases and
// the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, section sequence numbers and
//     phase names for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run statuses (failed vs rejected input).
package services

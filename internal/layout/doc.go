// Package layout computes tile geometry for a section of the composed call
// recording.
//
// The canvas holds one large tile for the current speaker and a single row of
// small tiles along the bottom edge. Geometry depends only on the ordered tile
// list and the canvas size, so strategies are pure and are re-run whenever the
// visible set or the speaker changes.
package layout

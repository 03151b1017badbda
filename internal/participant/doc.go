// Package participant tracks who is visible in a composed call recording.
//
// A Window keeps an unbounded registry of every participant currently in the
// call plus a bounded stage of at most K members that are actually drawn.
// Joiners, departures and speaker changes rotate members on and off the stage
// following fixed promotion and eviction rules: a joiner displaces the most
// idle visible non-speaker, a departing speaker hands the floor to the most
// recently active visible member, and a freed slot is backfilled from the
// off-stage participants.
//
// Snapshot returns deep copies for rendering. When more than one member is on
// stage the speaker appears twice: once as the large tile and once as a
// thumbnail in the small-tile row.
//
// Window is not safe for concurrent use; a segmentation pass owns one.
package participant

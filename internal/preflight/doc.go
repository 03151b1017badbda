// Package preflight provides readiness checks for the files, directories and
// external programs a planning run depends on.
//
// The pipeline calls RunAll before touching the store or dispatching work.
// Any failed required check aborts the run so that a missing metadata file
// or an unwritable output directory is reported up front rather than after
// sections have been dispatched.
package preflight

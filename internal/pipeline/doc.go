// Package pipeline orchestrates backup runs.
//
// A run advances through lock, validate, build, checksum, verify, and
// rotate, releasing the lock on every exit path. Validation and build
// failures abort before any checksum work; a verification failure
// aborts before rotation so pruning never proceeds against an archive
// known to be corrupt. Rotation failures are per-file and non-fatal.
// List and restore are independent of the run sequence.
package pipeline

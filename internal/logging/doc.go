// Package logging assembles the structured slog loggers used across
// tarkeep components.
//
// It owns the console/JSON handlers, centralizes level and output
// plumbing (stdout plus the append-only log file in the destination),
// and exposes shared attribute keys so run, archive, and stage fields
// keep the same names everywhere. A no-op logger is provided for tests.
package logging

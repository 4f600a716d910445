// Package archive builds, names, and extracts compressed backup
// archives.
//
// Archive names embed the creation timestamp with fixed-width fields so
// lexical ordering matches chronological ordering; retention relies on
// that invariant. The builder expands user-facing exclusion names into
// filter rules covering any depth, enforces a free-space margin before
// writing, and guarantees no partial output survives a failed or
// interrupted build.
package archive

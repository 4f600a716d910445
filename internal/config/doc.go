// Package config loads, normalizes, and validates tarkeep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// BACKUP_DESTINATION and the retention keep counts. The Config type
// centralizes every knob the CLI and pipeline need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical retention policies, and clear validation errors.
package config

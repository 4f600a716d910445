package archive

import "errors"

var (
	// ErrSourceNotFound reports a missing or non-directory source.
	ErrSourceNotFound = errors.New("source directory not found")
	// ErrPermissionDenied reports an unreadable source.
	ErrPermissionDenied = errors.New("source directory not readable")
	// ErrInsufficientSpace reports that the destination lacks the
	// estimated size plus safety margin.
	ErrInsufficientSpace = errors.New("insufficient space at destination")
	// ErrBuildFailed reports a failed archive build. Partial output is
	// removed before this is returned.
	ErrBuildFailed = errors.New("archive build failed")
)

package pipeline

import (
	"errors"

	"tarkeep/internal/archive"
)

// Exit codes for the run operation.
const (
	ExitOK = 0
	// ExitFailure covers lock conflicts, build failures, and
	// verification failures.
	ExitFailure = 1
	// ExitValidation covers missing/unreadable sources and
	// insufficient destination space.
	ExitValidation = 2
)

// ExitCodeFor maps an error to the run exit code.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, archive.ErrSourceNotFound),
		errors.Is(err, archive.ErrPermissionDenied),
		errors.Is(err, archive.ErrInsufficientSpace):
		return ExitValidation
	default:
		return ExitFailure
	}
}

package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Input errors
	ErrNoActiveSession = errors.New("no active session")
	ErrNoCurrentItem   = errors.New("no current item")
	ErrDuplicateItemID = errors.New("duplicate item id")
	ErrInvalidInterval = errors.New("computed interval is not finite")

	// Storage errors
	ErrPersistTransient = errors.New("transient storage failure, will retry")
	ErrPersistFatal     = errors.New("unrecoverable storage failure")

	// Item store errors
	ErrItemNotFound = errors.New("item not found")
)

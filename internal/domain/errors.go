package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// XP errors
	ErrUnknownXPAction = errors.New("unknown xp action")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidUser  = errors.New("user id must not be empty")

	// Workout errors
	ErrInvalidWorkout = errors.New("invalid workout")

	// Streak freeze errors
	ErrFreezeUnavailable = errors.New("streak freeze unavailable")
	ErrNothingToFreeze   = errors.New("no missed day to freeze")

	// Catalog errors
	ErrInvalidCatalog     = errors.New("invalid achievement catalog")
	ErrDuplicateCatalogID = errors.New("duplicate achievement id in catalog")
)

package sentinel

import "errors"

// Sentinel dependency errors. Stores and clients return these (optionally wrapped)
// so the orchestrator can translate them into domain errors exactly once.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoRelationship     = errors.New("no credit relationship")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrUnavailable        = errors.New("unavailable")
)

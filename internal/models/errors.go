package models

import "errors"

// Error kinds surfaced to callers. Services wrap these with context via
// fmt.Errorf("...: %w", err); the HTTP layer maps them with errors.Is.
var (
	// ErrNotFound means the referenced entity is absent or not owned by
	// the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller does not own the target order.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidQuantity means a quantity below 1 was requested.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidStatus means a status value outside its enum domain, or a
	// transition the state machine rejects.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrEmptyCart means order consolidation found no valid cart lines.
	ErrEmptyCart = errors.New("empty cart")

	// ErrValidationFailed means the input shape was malformed.
	ErrValidationFailed = errors.New("validation failed")

	// ErrTransactionFailed means the consolidation transaction rolled
	// back; no partial state is exposed.
	ErrTransactionFailed = errors.New("transaction failed")
)

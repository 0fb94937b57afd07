package models

import "errors"

// Policy/store-level failures. Unlike adapter failures these surface to the
// caller as rejected operations with no partial effect.
var (
	ErrLockedConflict       = errors.New("locked_conflict")
	ErrRunAlreadyActive     = errors.New("run_already_active")
	ErrInvalidPriorityOrder = errors.New("invalid_priority_order")
	ErrNotFound             = errors.New("not_found")
)

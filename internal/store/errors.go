package store

import (
	"errors"
	"fmt"
)

// Base store errors. Entity-specific variants wrap them, so errors.Is against
// a base error matches every variant.
var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when the database rejects a row: a missing
	// reference, a failed check or a null in a required column.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrVersionConflict is returned when an optimistic update finds that the
	// stored row changed since it was read.
	ErrVersionConflict = errors.New("version conflict")
)

// Not-found variants.
var (
	ErrDomainNotFound  = fmt.Errorf("%w: domain", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("%w: item", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: diagnostic session", ErrNotFound)
	ErrPlanNotFound    = fmt.Errorf("%w: learning plan", ErrNotFound)
	ErrMasteryNotFound = fmt.Errorf("%w: item mastery", ErrNotFound)
)

// Duplicate variants.
var (
	// ErrDuplicateResponse indicates the session already holds a response for
	// the item or the sequence number.
	ErrDuplicateResponse = fmt.Errorf("%w: diagnostic response", ErrDuplicate)

	// ErrActivePlanExists indicates the user already has an active plan.
	ErrActivePlanExists = fmt.Errorf("%w: active learning plan", ErrDuplicate)
)

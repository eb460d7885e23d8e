package journal

import "errors"

// Domain-specific errors for journal operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMissingKind is returned when recording an event without a kind.
	ErrMissingKind = errors.New("journal: event kind is required")

	// ErrMissingCategory is returned when recording an event without a category.
	ErrMissingCategory = errors.New("journal: event category is required")
)

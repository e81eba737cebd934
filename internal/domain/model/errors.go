package model

import "fmt"

// Validation error kinds.
const (
	KindMissingBody       = "missing_body"
	KindInvalidType       = "invalid_type"
	KindNonPositiveTotal  = "non_positive_total"
	KindCoveredOutOfRange = "covered_out_of_range"
	KindInvalidWard       = "invalid_ward"
)

// ValidationError rejects a prediction request. It is the only error the
// prediction pipeline returns to its caller.
type ValidationError struct {
	Kind  string
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Kind
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Kind, e.Field)
}

// Message is the client-facing text for the error kind.
func (e *ValidationError) Message() string {
	switch e.Kind {
	case KindMissingBody:
		return "No input data provided"
	case KindNonPositiveTotal:
		return "Total households must be greater than 0"
	case KindCoveredOutOfRange:
		return "Covered households must be between 0 and total"
	case KindInvalidWard:
		return "Ward number must be greater than 0"
	default:
		return "Invalid input data"
	}
}

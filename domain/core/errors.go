package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Data-quality errors. Cells that fail coercion become missing; these are
	// only raised when a whole column is unusable.
	ErrUnknownColumn = errors.New("unknown column")
	ErrMetricType    = errors.New("metric has the wrong type for this test")
	ErrInvalidSchema = errors.New("invalid schema")

	// Statistical-precondition errors. A test that cannot be run is never
	// reported as "no association".
	ErrInsufficientGroups     = errors.New("insufficient groups")
	ErrInsufficientCategories = fmt.Errorf("%w: metric has fewer than two categories", ErrInsufficientGroups)
	ErrGroupCount             = errors.New("wrong group count for test")
	ErrEmptyGroup             = errors.New("group has no usable records")
	ErrInsufficientData       = errors.New("insufficient data for analysis")
	ErrDegenerateSample       = errors.New("degenerate sample: statistic undefined")
)

// NewColumnError reports a column that the table does not carry
func NewColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrUnknownColumn, column)
}

// IsPreconditionError reports whether err means a test could not be run
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrInsufficientGroups) ||
		errors.Is(err, ErrGroupCount) ||
		errors.Is(err, ErrEmptyGroup) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateSample)
}

// IsDataQualityError reports whether err comes from the shape of the input
func IsDataQualityError(err error) bool {
	return errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, ErrMetricType) ||
		errors.Is(err, ErrInvalidSchema)
}

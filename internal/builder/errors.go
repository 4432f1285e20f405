package builder

import "errors"

// Accumulation errors. Use errors.Is() to check.
var (
	// ErrInvalidOperator is returned for an unknown operator, or an operator
	// that cannot take the given value (e.g. "<" with a list).
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidValue is returned for a value that cannot be translated,
	// e.g. a comparison operator with no value or malformed raw JSON.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidStructure is returned when a callback or condition map was
	// required and something else was given.
	ErrInvalidStructure = errors.New("invalid structure")
)

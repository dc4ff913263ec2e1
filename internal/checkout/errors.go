package checkout

import (
	"errors"
	"fmt"
)

// Errors returned by the checkout. The HTTP layer maps each to a status code;
// anything else is an internal error.
var (
	ErrValidation   = errors.New("invalid checkout request")
	ErrAccessDenied = errors.New("order not found or access denied")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("order already paid with a different payment intent")
	ErrUpstreamHard = errors.New("payment processor unavailable")
)

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

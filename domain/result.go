package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// SoftError is an upstream failure the checkout absorbs and carries on from.
// It is logged and counted but never returned to the buyer.
type SoftError struct {
	Stage   string
	OrderID uuid.UUID
	Err     error
}

func (e *SoftError) Error() string {
	return fmt.Sprintf("%s stage soft failure for order %s: %v", e.Stage, e.OrderID, e.Err)
}

func (e *SoftError) Unwrap() error {
	return e.Err
}

// StageResult is the outcome of a stage that may degrade instead of failing.
type StageResult[T any] struct {
	Value T
	Soft  *SoftError
}

func Ok[T any](v T) StageResult[T] {
	return StageResult[T]{Value: v}
}

func Degraded[T any](fallback T, soft *SoftError) StageResult[T] {
	return StageResult[T]{Value: fallback, Soft: soft}
}

func (r StageResult[T]) IsOk() bool {
	return r.Soft == nil
}

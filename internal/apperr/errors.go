package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Every business-rule failure wraps exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyProcessed  = errors.New("already processed")
	ErrOwnershipMismatch = errors.New("ownership mismatch")
	ErrReversalConflict  = errors.New("reversal conflict")
)

// NotFound reports a missing entity of the given kind.
func NotFound(entity string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// Validation reports a malformed request or an invalid status transition.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func AlreadyProcessed(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrAlreadyProcessed)
}

func OwnershipMismatch(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrOwnershipMismatch)
}

func ReversalConflict(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrReversalConflict)
}

// InsufficientStockError carries the product and both quantities of a failed stock check.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: requested=%d, available=%d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Kind returns the sentinel an error wraps, or nil for unexpected failures.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrValidation,
		ErrInsufficientStock,
		ErrAlreadyProcessed,
		ErrOwnershipMismatch,
		ErrReversalConflict,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by lifecycle operations. Anything that does not match one
// of these via errors.Is is an internal failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Error carries a human-readable message and the kind it belongs to.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func invalidf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error. Repository implementations use it for missing rows.
func NotFoundf(format string, args ...any) error {
	return notFoundf(format, args...)
}

// InsufficientStockError names the product whose stock cannot cover a request.
// Available and Requested are in sale units; the Boxes fields carry the counts
// the check is decided on.
type InsufficientStockError struct {
	ProductID      int
	ProductName    string
	Available      int
	Requested      int
	AvailableBoxes int
	RequestedBoxes int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d (boxes %d/%d)",
		e.ProductName, e.Available, e.Requested, e.AvailableBoxes, e.RequestedBoxes)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ErrorCode maps err onto the stable code used by adapters and metrics.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	default:
		return "INTERNAL"
	}
}

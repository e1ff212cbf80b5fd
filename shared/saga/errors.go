package saga

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource record is absent from the store.
	ErrNotFound = stderrors.New("record not found")

	// ErrAlreadyExists is returned by stores that reject duplicate creation.
	ErrAlreadyExists = stderrors.New("record already exists")
)

// InvalidInputError is a domain validation failure. It is terminal: the saga
// fails immediately and the operation is never retried.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NewInvalidInput creates an InvalidInputError
func NewInvalidInput(reason string) error {
	return &InvalidInputError{Reason: reason}
}

// IsInvalidInput reports whether err is a validation failure
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return stderrors.As(err, &target)
}

// TransientError is a failure worth retrying, such as a momentary store or
// network fault during order creation.
type TransientError struct {
	Reason string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %s", e.Reason)
}

// NewTransient creates a TransientError
func NewTransient(reason string) error {
	return &TransientError{Reason: reason}
}

// IsTransient reports whether err is retryable
func IsTransient(err error) bool {
	var target *TransientError
	return stderrors.As(err, &target)
}

// IsNotFound reports whether err wraps ErrNotFound
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

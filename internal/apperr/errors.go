// Package apperr defines the error taxonomy shared by the catalogue, member
// registry and lending engine. Shells map these to exit codes or HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every "record absent" error.
	ErrNotFound = errors.New("not found")

	// ErrBookNotFound is returned when a book id or ISBN matches nothing.
	ErrBookNotFound = fmt.Errorf("book %w", ErrNotFound)

	// ErrMemberNotFound is returned when a member id matches nothing.
	ErrMemberNotFound = fmt.Errorf("member %w", ErrNotFound)

	// ErrDuplicateISBN is returned when an ISBN is already used by another book.
	ErrDuplicateISBN = errors.New("a book with this ISBN already exists")

	// ErrBookBorrowed is returned when removing a book that is out on loan.
	ErrBookBorrowed = errors.New("book is currently borrowed")

	// ErrAlreadyBorrowed is returned when borrowing a book that is out on loan.
	ErrAlreadyBorrowed = errors.New("book is already borrowed")

	// ErrNoOpenBorrowing is returned when returning a book that is not on loan.
	ErrNoOpenBorrowing = errors.New("book is not currently borrowed")

	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrStore marks connection and transaction failures of the persistent store.
	ErrStore = errors.New("store error")
)

// Stable codes for shells.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeDuplicateISBN   = "DUPLICATE_ISBN"
	CodeBookBorrowed    = "BOOK_BORROWED"
	CodeAlreadyBorrowed = "ALREADY_BORROWED"
	CodeNoOpenBorrowing = "NO_OPEN_BORROWING"
	CodeValidation      = "VALIDATION_ERROR"
	CodeStore           = "STORE_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// StoreError wraps a failure reported by the database driver.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes every StoreError match ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// Store wraps err as a StoreError for op. Domain errors pass through untouched
// so that a sentinel returned from inside a transaction keeps its identity.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func (v ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// IsDomain reports whether err belongs to the taxonomy (anything but a store failure).
func IsDomain(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateISBN),
		errors.Is(err, ErrBookBorrowed),
		errors.Is(err, ErrAlreadyBorrowed),
		errors.Is(err, ErrNoOpenBorrowing),
		errors.Is(err, ErrValidation):
		return true
	}
	return false
}

// Code returns the stable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicateISBN):
		return CodeDuplicateISBN
	case errors.Is(err, ErrBookBorrowed):
		return CodeBookBorrowed
	case errors.Is(err, ErrAlreadyBorrowed):
		return CodeAlreadyBorrowed
	case errors.Is(err, ErrNoOpenBorrowing):
		return CodeNoOpenBorrowing
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrStore):
		return CodeStore
	default:
		return CodeInternal
	}
}

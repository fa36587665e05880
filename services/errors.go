package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrCodeSpaceExhausted is returned when code minting keeps colliding.
	ErrCodeSpaceExhausted = errors.New("code space exhausted")
	// ErrBoostKeyInvalid is returned when a referrer boost code does not resolve.
	ErrBoostKeyInvalid = errors.New("boost key not valid")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	Resource   string
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Identifier)
}

// AlreadyClaimedError rejects a duplicate claim within the same period.
type AlreadyClaimedError struct {
	Claim string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("%s reward already claimed", e.Claim)
}

type StorageError struct {
	Operation string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// wrapStorage passes typed service errors through and wraps anything else.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		validation *ValidationError
		notFound   *NotFoundError
		claimed    *AlreadyClaimedError
		storage    *StorageError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound),
		errors.As(err, &claimed), errors.As(err, &storage),
		errors.Is(err, ErrCodeSpaceExhausted), errors.Is(err, ErrBoostKeyInvalid):
		return err
	}
	return &StorageError{Operation: op, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

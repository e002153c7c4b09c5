/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Code classifies a failure the way the remote store reports it.
type Code string

const (
	// InvalidArgument marks a malformed key, value, or query detected
	// locally before any network call.
	InvalidArgument Code = "INVALID_ARGUMENT"

	// NotFound marks a missing property on a typed getter, or an update
	// commit against a key that does not exist.
	NotFound Code = "NOT_FOUND"

	// AlreadyExists marks an add commit against a key that already exists.
	AlreadyExists Code = "ALREADY_EXISTS"

	// Aborted marks a transaction commit that lost an optimistic-concurrency
	// race. Aborted failures are retryable by starting a new transaction.
	Aborted Code = "ABORTED"

	// FailedPrecondition marks an operation on a batch or transaction that
	// has already reached a terminal state.
	FailedPrecondition Code = "FAILED_PRECONDITION"

	// Internal marks any other driver or store failure.
	Internal Code = "INTERNAL"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity or property is not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when inserting an entity whose key already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument is returned when input validation fails
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAborted is returned when a transaction commit detects a conflicting write
	ErrAborted = errors.New("transaction aborted")

	// ErrFailedPrecondition is returned when a batch or transaction is no longer usable
	ErrFailedPrecondition = errors.New("failed precondition")
)

// sentinels maps each code to the sentinel it matches under errors.Is.
var sentinels = map[Code]error{
	InvalidArgument:    ErrInvalidArgument,
	NotFound:           ErrNotFound,
	AlreadyExists:      ErrAlreadyExists,
	Aborted:            ErrAborted,
	FailedPrecondition: ErrFailedPrecondition,
}

// Error is a coded error carrying the failed operation and an optional cause.
type Error struct {
	Code    Code
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return other.Code == e.Code
	}
	return sentinels[e.Code] == target
}

// New creates a coded error with a static message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a code and the failing operation.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the code from an error, or Internal when it carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidArgument checks if an error is a validation error
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsAborted checks if an error is a transaction conflict error
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

// IsFailedPrecondition checks if an error is a stale batch/transaction error
func IsFailedPrecondition(err error) bool {
	return errors.Is(err, ErrFailedPrecondition)
}

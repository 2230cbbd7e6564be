package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a request that can never succeed as sent.
	ErrValidation = errors.New("validation failed")
	// ErrDatastore signals a failed call to the product datastore.
	ErrDatastore = errors.New("datastore error")
	// ErrTelemetry signals a failed analytics write or read. Never caller-visible.
	ErrTelemetry = errors.New("telemetry error")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// ValidationError names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DatastoreClass classifies datastore failures for the transport layer.
type DatastoreClass string

// Datastore failure classes.
const (
	DatastoreUnavailable      DatastoreClass = "unavailable"
	DatastoreDeadlineExceeded DatastoreClass = "deadline exceeded"
	DatastoreCanceled         DatastoreClass = "canceled"
	DatastoreQueryFailed      DatastoreClass = "query failed"
)

// DatastoreError wraps a datastore failure with the operation and class.
// errors.Is matches both ErrDatastore and the underlying cause.
type DatastoreError struct {
	Op    string
	Class DatastoreClass
	Err   error
}

func (e *DatastoreError) Error() string {
	return fmt.Sprintf("%s (%s) %s: %v", ErrDatastore.Error(), e.Class, e.Op, e.Err)
}

func (e *DatastoreError) Unwrap() []error { return []error{ErrDatastore, e.Err} }

// NewDatastoreError classifies err. Context errors take precedence over the
// class supplied by the driver.
func NewDatastoreError(op string, class DatastoreClass, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		class = DatastoreDeadlineExceeded
	case errors.Is(err, context.Canceled):
		class = DatastoreCanceled
	case class == "":
		class = DatastoreQueryFailed
	}
	return &DatastoreError{Op: op, Class: class, Err: err}
}

// IsDeadline reports whether err is a datastore timeout.
func IsDeadline(err error) bool {
	var de *DatastoreError
	if errors.As(err, &de) {
		return de.Class == DatastoreDeadlineExceeded
	}
	return false
}

// TelemetryError wraps an analytics failure.
type TelemetryError struct {
	Op  string
	Err error
}

func (e *TelemetryError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrTelemetry.Error(), e.Op, e.Err)
}

func (e *TelemetryError) Unwrap() []error { return []error{ErrTelemetry, e.Err} }

// NewTelemetryError creates a telemetry error.
func NewTelemetryError(op string, err error) error {
	return &TelemetryError{Op: op, Err: err}
}

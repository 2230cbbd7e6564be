package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("limit", "must be at most %d", 100)
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected ErrValidation")
	}
	if got, want := err.Error(), "validation failed: limit: must be at most 100"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var ve *ValidationError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &ve) || ve.Field != "limit" {
		t.Errorf("errors.As failed: %+v", ve)
	}
}

func TestNewDatastoreError_Classes(t *testing.T) {
	cause := errors.New("relation missing")
	tests := []struct {
		name  string
		class DatastoreClass
		err   error
		want  DatastoreClass
	}{
		{"default class", "", cause, DatastoreQueryFailed},
		{"driver class kept", DatastoreUnavailable, cause, DatastoreUnavailable},
		{"deadline wins", DatastoreUnavailable, fmt.Errorf("count: %w", context.DeadlineExceeded), DatastoreDeadlineExceeded},
		{"canceled wins", DatastoreQueryFailed, context.Canceled, DatastoreCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDatastoreError("search products", tt.class, tt.err)
			var de *DatastoreError
			if !errors.As(err, &de) {
				t.Fatal("expected *DatastoreError")
			}
			if de.Class != tt.want {
				t.Errorf("class = %q, want %q", de.Class, tt.want)
			}
			if !errors.Is(err, ErrDatastore) || !errors.Is(err, tt.err) {
				t.Error("expected both ErrDatastore and the cause to match")
			}
			if IsDeadline(err) != (tt.want == DatastoreDeadlineExceeded) {
				t.Errorf("IsDeadline = %v", IsDeadline(err))
			}
		})
	}
}

func TestTelemetryError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTelemetryError("record query", cause)
	if !errors.Is(err, ErrTelemetry) || !errors.Is(err, cause) {
		t.Fatal("expected ErrTelemetry and cause")
	}
	if errors.Is(err, ErrDatastore) {
		t.Error("telemetry failures must not look like datastore failures")
	}
}

package client

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by *APIError. Use errors.Is() to check.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrTimeout      = errors.New("search timed out")
	ErrUnavailable  = errors.New("search unavailable")
	ErrInternal     = errors.New("internal error")
)

var codeSentinels = map[string]error{
	"bad_request":        ErrBadRequest,
	"validation_failed":  ErrValidation,
	"unauthorized":       ErrUnauthorized,
	"not_found":          ErrNotFound,
	"search_timeout":     ErrTimeout,
	"search_unavailable": ErrUnavailable,
	"internal_error":     ErrInternal,
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("prodsearch: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("prodsearch: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// Is matches the sentinel for e.Code.
func (e *APIError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

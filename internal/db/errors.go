package db

import "errors"

// Sentinel errors for datastore operations.
var (
	ErrUnavailable = errors.New("db: unavailable")
	ErrBadQuery    = errors.New("db: bad query")
)

// Op names for error context.
const (
	OpCount   = "COUNT"
	OpSelect  = "SELECT"
	OpScan    = "SCAN"
	OpPing    = "PING"
	OpMigrate = "MIGRATE"
	OpZIncrBy = "ZINCRBY"
	OpZRange  = "ZRANGE"
	OpUpdate  = "UPDATE"
	OpIterate = "ITERATE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

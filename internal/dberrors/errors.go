// Package dberrors defines the {code, message} error taxonomy shared by
// every command the core exposes (spec.md §7).
package dberrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	// DatabaseNotLoaded: operation on an unknown database identity.
	DatabaseNotLoaded Code = "DATABASE_NOT_LOADED"
	// AlreadyLoaded: re-load with conflicting config.
	AlreadyLoaded Code = "ALREADY_LOADED"
	// SQLite: engine-reported error, native code preserved in SQLiteCode.
	SQLite Code = "SQLITE_ERROR"
	// SQLiteConstraint: uniqueness/FK/check violation, after rollback.
	SQLiteConstraint Code = "SQLITE_CONSTRAINT"
	// UnknownTransaction: stale or missing token.
	UnknownTransaction Code = "UNKNOWN_TRANSACTION"
	// TransactionBusy: attempt to begin while one is already live.
	TransactionBusy Code = "TRANSACTION_BUSY"
	// PreupdateHookUnavailable: engine build lacks the preupdate hook.
	PreupdateHookUnavailable Code = "PREUPDATE_HOOK_UNAVAILABLE"
	// MigrationFailed: a migration aborted; db stays at the last good version.
	MigrationFailed Code = "MIGRATION_FAILED"
	// IOError: filesystem fault on open/remove.
	IOError Code = "IO_ERROR"
	// Closed: acquisition attempted after shutdown.
	Closed Code = "CLOSED"
	// MultipleRows: fetch_one matched more than one row.
	MultipleRows Code = "MULTIPLE_ROWS_RETURNED"
	// InvalidArgument: malformed command input (bad query shape, bad token
	// format, etc.) that isn't covered by a more specific code above.
	InvalidArgument Code = "INVALID_ARGUMENT"
)

// Error is the core's error envelope. It implements error and supports
// errors.As/errors.Is via Unwrap, matching the teacher's RuntimeError.
type Error struct {
	Code    Code
	Message string
	// Cause is the underlying error, if any (e.g. the raw sqlite3.Error).
	Cause error
	// SQLiteCode carries the native SQLite result code when Code is
	// SQLite or SQLiteConstraint, for callers that want to branch on it.
	SQLiteCode string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that carries cause as its Unwrap target.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the Code from err, or "" if err is not (or does not
// wrap) an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err is (or wraps) an *Error with the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

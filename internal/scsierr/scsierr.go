// Package scsierr defines the error taxonomy used across the tape engine.
// Every fallible operation returns an *Error with a Kind the caller can
// switch on, instead of an opaque error string, so the command surface can
// map failures onto exit codes without parsing messages.
package scsierr

import (
	"errors"
	"fmt"
)

// Kind classifies the source of a failure.
type Kind int

const (
	// Io covers filesystem/device-handle failures unrelated to a SCSI
	// command itself (open, flock, read/write on the fd).
	Io Kind = iota
	// Scsi covers a SCSI command that completed with a non-good status,
	// decoded via the sense buffer.
	Scsi
	// TapeDevice covers drive-state problems: no tape loaded, drive not
	// ready, door open.
	TapeDevice
	// FileOperation covers failures manipulating the logical LTFS file
	// tree once an index is loaded.
	FileOperation
	// Config covers malformed or missing configuration.
	Config
	// Verification covers an index or schema that failed validation.
	Verification
	// UnsupportedOperation covers a CDB or drive-type combination this
	// engine does not implement.
	UnsupportedOperation
	// Permission covers device-open failures due to access rights.
	Permission
	// Parse covers malformed XML or schema text that could not be turned
	// into an Index.
	Parse
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case Scsi:
		return "scsi"
	case TapeDevice:
		return "tape_device"
	case FileOperation:
		return "file_operation"
	case Config:
		return "config"
	case Verification:
		return "verification"
	case UnsupportedOperation:
		return "unsupported_operation"
	case Permission:
		return "permission"
	case Parse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every package in this
// module. Wrap with %w via fmt.Errorf only at package boundaries that must
// return a plain error; within the module, pass *Error through unchanged so
// callers can recover the Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates an *Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error carrying an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Wrapf creates an *Error carrying an underlying cause with a formatted
// message.
func Wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error; otherwise
// it returns Io and false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return Io, false
	}
	return e.Kind, true
}

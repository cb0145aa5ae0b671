// Package errs defines the error taxonomy and process exit codes for nntp2sql.
package errs

import (
	"errors"
	"fmt"
)

// Exit codes. 0 is success; everything else maps a failure class.
const (
	CodeOK          = 0
	CodeArgs        = 2
	CodeConfig      = 3
	CodeDNS         = 10
	CodeConnect     = 11
	CodeTLS         = 12
	CodeGreeting    = 13
	CodeNNTPCommand = 14
	CodeAuth        = 15
	CodeDBConnect   = 20
	CodeDBSchema    = 21
	CodeDBPrepare   = 22
	CodeRuntime     = 30
)

// Error carries an exit code alongside the wrapped cause.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error from a format string.
func New(code int, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches an exit code to an existing error. A nil err yields nil.
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Code extracts the exit code from an error chain.
// nil maps to CodeOK, uncoded errors to CodeRuntime.
func Code(err error) int {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeRuntime
}

// Describe returns the human-readable class of an exit code,
// printed next to the code on fatal exit.
func Describe(code int) string {
	switch code {
	case CodeOK:
		return "ok"
	case CodeArgs:
		return "invalid or missing arguments"
	case CodeConfig:
		return "configuration error"
	case CodeDNS:
		return "DNS resolution failed"
	case CodeConnect:
		return "network connect failed"
	case CodeTLS:
		return "TLS error"
	case CodeGreeting:
		return "NNTP greeting failed"
	case CodeNNTPCommand:
		return "NNTP command failed"
	case CodeAuth:
		return "authentication failed"
	case CodeDBConnect:
		return "database connection failed"
	case CodeDBSchema:
		return "database schema creation failed"
	case CodeDBPrepare:
		return "database prepared statement failed"
	default:
		return "runtime error"
	}
}

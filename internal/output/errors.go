package output

import (
	"errors"
	"fmt"
)

// Exit codes following sysexits.h convention
const (
	ExitOK           = 0  // Success
	ExitGeneral      = 1  // General error
	ExitUsage        = 2  // Invalid usage / bad arguments
	ExitAuth         = 3  // Authentication failure
	ExitNotFound     = 4  // Resource not found
	ExitConflict     = 5  // Conflict (resource already exists)
	ExitForbidden    = 6  // Permission denied or credentials file integrity failure
	ExitRateLimit    = 75 // Rate limited (EX_TEMPFAIL from sysexits.h)
	ExitTimeout      = 8  // Request timeout
	ExitAPIError     = 9  // PageVitals API error (non-specific)
	ExitConfigError  = 10 // Configuration error (missing API key, bad config)
	ExitNetworkError = 11 // Network connectivity error
)

// CLIError represents a structured error with exit code and optional hint
type CLIError struct {
	ExitCode int
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *CLIError) Error() string {
	return e.Message
}

// NewCLIError creates a new CLIError
func NewCLIError(code int, msg string) *CLIError {
	return &CLIError{
		ExitCode: code,
		Message:  msg,
	}
}

// WithHint adds a user-facing hint to the error
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// Wrap builds a CLIError for err unless it already is one.
func Wrap(code int, msg string, err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return &CLIError{
		ExitCode: code,
		Message:  fmt.Sprintf("%s: %v", msg, err),
	}
}

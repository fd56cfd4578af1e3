package exitcode

import (
	"context"
	"errors"
	"fmt"
	"os"

	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates no errors, or warnings only in non-strict mode
	Success = 0

	// ValidationFailed indicates errors, or warnings under --strict
	ValidationFailed = 1

	// NoPhasesFound indicates the phases directory is missing or empty
	NoPhasesFound = 2

	// ParseError indicates a malformed phase document
	ParseError = 3

	// UsageError indicates invalid command usage (bad flags, unknown phase, etc.)
	UsageError = 4

	// ConfigError indicates an invalid configuration file or environment
	ConfigError = 5

	// Interrupted indicates the run was cancelled by a signal
	Interrupted = 130
)

// StatusError carries an exit code for a run that already reported its outcome.
// main exits with Code without printing anything further.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// WithCode returns a StatusError for non-zero codes and nil for Success
func WithCode(code int) error {
	if code == Success {
		return nil
	}
	return &StatusError{Code: code}
}

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var status *StatusError
	if errors.As(err, &status) {
		return status.Code
	}

	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	var pgErr *pgerrors.PhaseguardError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrors.ErrCodeNoPhasesFound:
			return NoPhasesFound
		case pgerrors.ErrCodePhaseParse, pgerrors.ErrCodePhaseReadFailed:
			return ParseError
		case pgerrors.ErrCodePhaseNotFound, pgerrors.ErrCodeUsageInvalidFlag:
			return UsageError
		case pgerrors.ErrCodeConfigInvalid, pgerrors.ErrCodeConfigNotFound:
			return ConfigError
		}
	}

	return ValidationFailed
}

// IsSilent reports whether err only carries an exit status
func IsSilent(err error) bool {
	var status *StatusError
	return errors.As(err, &status)
}

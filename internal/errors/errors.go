package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Phase repository errors (PHASE-001 to PHASE-099)
	ErrCodeNoPhasesFound   ErrorCode = "PHASE-001"
	ErrCodePhaseParse      ErrorCode = "PHASE-002"
	ErrCodePhaseNotFound   ErrorCode = "PHASE-003"
	ErrCodePhaseReadFailed ErrorCode = "PHASE-004"

	// Fix errors (FIX-001 to FIX-099)
	ErrCodeFixWriteFailed         ErrorCode = "FIX-001"
	ErrCodeFixConcurrentChange    ErrorCode = "FIX-002"
	ErrCodeFixDocumentUnparseable ErrorCode = "FIX-003"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-001"
	ErrCodeConfigNotFound ErrorCode = "CONFIG-002"

	// Usage errors (USAGE-001 to USAGE-099)
	ErrCodeUsageInvalidFlag ErrorCode = "USAGE-001"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
)

// PhaseguardError represents an enhanced error with code, suggestions, and documentation
type PhaseguardError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *PhaseguardError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PhaseguardError) Unwrap() error {
	return e.Cause
}

// New creates a new PhaseguardError
func New(code ErrorCode, message string) *PhaseguardError {
	return &PhaseguardError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PhaseguardError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PhaseguardError {
	return &PhaseguardError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PhaseguardError) WithSuggestion(suggestion string) *PhaseguardError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *PhaseguardError) WithDocs(url string) *PhaseguardError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewNoPhasesFoundError reports an empty or missing phases directory
func NewNoPhasesFoundError(root string, cause error) *PhaseguardError {
	return Wrap(ErrCodeNoPhasesFound, fmt.Sprintf("no phases found under %s", root), cause).
		WithSuggestion("Run the planning step first to generate phase directories").
		WithSuggestion("Check --dir and --state-dir point at your project").
		WithDocs("https://github.com/felixgeelhaar/phaseguard#phase-layout")
}

// NewPhaseParseError reports a malformed phase document
func NewPhaseParseError(cause error) *PhaseguardError {
	return Wrap(ErrCodePhaseParse, "failed to parse phase documents", cause).
		WithSuggestion("Fix the front matter at the reported location and re-run").
		WithSuggestion("wave must be a positive integer and depends_on a list of route ids").
		WithDocs("https://github.com/felixgeelhaar/phaseguard#front-matter")
}

// NewPhaseNotFoundError reports a --phase filter that matches nothing
func NewPhaseNotFoundError(number int, available []int) *PhaseguardError {
	nums := make([]string, 0, len(available))
	for _, n := range available {
		nums = append(nums, fmt.Sprintf("%d", n))
	}
	return New(ErrCodePhaseNotFound, fmt.Sprintf("phase %d does not exist", number)).
		WithSuggestion(fmt.Sprintf("Available phases: %s", strings.Join(nums, ", "))).
		WithSuggestion("Run without --phase to validate every phase")
}

// NewFixWriteError reports a document that could not be written back
func NewFixWriteError(path string, cause error) *PhaseguardError {
	return Wrap(ErrCodeFixWriteFailed, fmt.Sprintf("failed to write %s", path), cause).
		WithSuggestion("Check file permissions on the phase directory")
}

// NewFixConcurrentChangeError reports a document modified between read and write
func NewFixConcurrentChangeError(path string) *PhaseguardError {
	return New(ErrCodeFixConcurrentChange, fmt.Sprintf("%s changed on disk since it was read", path)).
		WithSuggestion("Re-run 'phaseguard validate --fix' once other edits are finished")
}

// NewConfigInvalidError reports a configuration file or environment problem
func NewConfigInvalidError(source string, cause error) *PhaseguardError {
	return Wrap(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration in %s", source), cause).
		WithSuggestion("Check .phaseguard.yaml syntax").
		WithSuggestion("Unset PHASEGUARD_* environment variables to fall back to defaults")
}

// NewInvalidFlagError reports a bad flag value
func NewInvalidFlagError(flag string, detail string) *PhaseguardError {
	return New(ErrCodeUsageInvalidFlag, fmt.Sprintf("invalid value for --%s: %s", flag, detail)).
		WithSuggestion("Run 'phaseguard validate --help' for accepted values")
}

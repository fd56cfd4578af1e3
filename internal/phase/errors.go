package phase

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPhasesFound is returned when the phases directory is missing or has
// no numerically named subdirectories.
var ErrNoPhasesFound = errors.New("no phases found")

// ParseError locates a malformed phase document
type ParseError struct {
	Path    string
	Line    int
	Context string
	Msg     string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n    > %s", e.Context)
	}
	return b.String()
}

func parseErrorf(path string, line int, context string, format string, args ...any) *ParseError {
	return &ParseError{
		Path:    path,
		Line:    line,
		Context: strings.TrimSpace(context),
		Msg:     fmt.Sprintf(format, args...),
	}
}

// lineAt returns the 1-based line of data, or "" when out of range
func lineAt(data []byte, line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how a validation report is written
type Format string

const (
	// FormatMarkdown is the full human report
	FormatMarkdown Format = "markdown"
	// FormatQuiet is a one-line verdict plus issue bullets, for CI logs
	FormatQuiet Format = "quiet"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists every supported format
var Formats = []Format{FormatMarkdown, FormatQuiet, FormatJSON, FormatYAML}

// ParseFormat accepts a format name case-insensitively. Empty means
// markdown; "text" and "md" are accepted as markdown aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md", "text":
		return FormatMarkdown, nil
	case "quiet":
		return FormatQuiet, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		names := make([]string, len(Formats))
		for i, f := range Formats {
			names[i] = string(f)
		}
		return "", fmt.Errorf("unknown format %q (supported: %s)", s, strings.Join(names, ", "))
	}
}

// Structured reports whether the format is machine-readable data
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML
}

// Formatter writes a value in one output format
type Formatter interface {
	Format(data any) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// Compact disables indentation for JSON
	Compact bool
}

// NewFormatter returns the formatter for f. Markdown and quiet output are
// pre-rendered text, so both map to the text formatter.
func NewFormatter(f Format, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch f {
	case FormatJSON:
		return &JSONFormatter{opts: opts}, nil
	case FormatYAML:
		return &YAMLFormatter{opts: opts}, nil
	case FormatMarkdown, FormatQuiet, "":
		return &TextFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", f)
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts *FormatterOptions
}

// Format writes data as JSON
func (f *JSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	encoder.SetEscapeHTML(false)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as YAML
func (f *YAMLFormatter) Format(data any) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// TextFormatter writes strings and Stringers as-is
type TextFormatter struct {
	opts *FormatterOptions
}

// Format writes data followed by a newline unless it already ends in one
func (f *TextFormatter) Format(data any) error {
	var text string
	switch v := data.(type) {
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		return fmt.Errorf("text formatter needs a string or fmt.Stringer, got %T", data)
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(f.opts.Writer, text)
	return err
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
	_ Formatter = (*TextFormatter)(nil)
)

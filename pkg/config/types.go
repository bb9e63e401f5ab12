package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/workcatalog/workcatalog/pkg/stores"
)

// Format is a catalog file encoding.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Severity levels reported in a ValidationError.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ParseFormat converts a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "cue":
		return FormatCUE, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported catalog format %q (must be cue, json or yaml)", name)
	}
}

// DetectFormat infers the catalog format from a file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot detect catalog format of %s: no file extension", path)
	}
	return ParseFormat(ext)
}

// Catalog is the result of parsing one or more catalog files.
type Catalog struct {
	// WorkTypes are the decoded rows in source order. Rows of every file
	// are appended in the order the files were given.
	WorkTypes []stores.WorkType `json:"workTypes"`

	// SourceFiles are the files that were parsed.
	SourceFiles []string `json:"source_files"`

	// ParsedAt is when the catalog was parsed.
	ParsedAt time.Time `json:"parsed_at"`

	// Errors lists validation errors and warnings.
	Errors []ValidationError `json:"errors,omitempty"`
}

// HasErrors reports whether any error-severity problem was found.
func (c *Catalog) HasErrors() bool {
	for _, e := range c.Errors {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns the warning-severity problems.
func (c *Catalog) Warnings() []ValidationError {
	var warnings []ValidationError
	for _, e := range c.Errors {
		if e.Severity == SeverityWarning {
			warnings = append(warnings, e)
		}
	}
	return warnings
}

// Err joins every error-severity problem into one error, or returns nil.
func (c *Catalog) Err() error {
	var errs []error
	for _, e := range c.Errors {
		if e.Severity == SeverityError {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

// ValidationError represents a validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the path to the offending value (e.g., "workTypes[2].basePay").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning).
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

package policy

import (
	"time"

	"github.com/workcatalog/workcatalog/pkg/stores"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityWarning is reported but does not block an import.
	SeverityWarning Severity = "warning"

	// SeverityError blocks an import.
	SeverityError Severity = "error"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityWarning || s == SeverityError
}

// Policy is a Rego module whose deny rule reports catalog violations.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Source is the file the policy was loaded from, empty for built-ins.
	Source string `json:"source,omitempty"`
}

// Violation is a single deny result.
type Violation struct {
	Policy   string   `json:"policy"`
	WorkType string   `json:"work_type,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Result is the outcome of evaluating every enabled policy.
type Result struct {
	// Allowed is false when any violation has error severity.
	Allowed bool `json:"allowed"`

	// Violations lists the error severity violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists violations that do not block.
	Warnings []Violation `json:"warnings,omitempty"`

	EvaluatedPolicies []string      `json:"evaluated_policies"`
	EvaluatedAt       time.Time     `json:"evaluated_at"`
	Duration          time.Duration `json:"duration"`
}

// Input is the document policies see as input.
type Input struct {
	// WorkTypes are the rows about to be written, in catalog order.
	WorkTypes []stores.WorkType `json:"workTypes"`

	// SourceFiles are the catalog files the rows came from.
	SourceFiles []string `json:"sourceFiles,omitempty"`

	// Replace is true when the rows replace the whole catalog.
	Replace bool `json:"replace"`
}

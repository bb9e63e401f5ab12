package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/workcatalog/workcatalog/pkg/stores"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	eng, err := NewEngine(zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

const minimumPayPolicy = `package workcatalog.pay

deny contains violation if {
	some wt in input.workTypes
	wt.basePay < 12
	violation := {
		"message": sprintf("%s pays below the minimum", [wt.name]),
		"severity": "error",
		"workType": wt.name,
	}
}
`

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	policies := eng.ListPolicies()
	expected := []string{"bonus-ceiling", "case-duplicates", "zero-base-pay"}

	if len(policies) != len(expected) {
		t.Fatalf("Expected %d built-in policies, got %d", len(expected), len(policies))
	}
	for i, name := range expected {
		if policies[i].Name != name {
			t.Errorf("Policy %d: expected %s, got %s", i, name, policies[i].Name)
		}
		if policies[i].Severity != SeverityWarning {
			t.Errorf("Built-in policy %s should only warn", name)
		}
	}

	bare := newTestEngine(t, WithoutBuiltins())
	if n := len(bare.ListPolicies()); n != 0 {
		t.Errorf("Expected no policies without built-ins, got %d", n)
	}
}

func TestEvaluateBuiltinPolicies(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		name      string
		workTypes []stores.WorkType
		policies  []string
	}{
		{
			name: "clean catalog",
			workTypes: []stores.WorkType{
				{Name: "Welder", BasePay: 20, BonusPercent: 5},
				{Name: "Painter", BasePay: 15, BonusPercent: 100},
			},
		},
		{
			name: "large bonus",
			workTypes: []stores.WorkType{
				{Name: "Diver", BasePay: 40, BonusPercent: 150},
			},
			policies: []string{"bonus-ceiling"},
		},
		{
			name: "zero pay",
			workTypes: []stores.WorkType{
				{Name: "Volunteer", BasePay: 0, BonusPercent: 0},
			},
			policies: []string{"zero-base-pay"},
		},
		{
			name: "case duplicates",
			workTypes: []stores.WorkType{
				{Name: "Welder", BasePay: 20, BonusPercent: 5},
				{Name: "welder", BasePay: 21, BonusPercent: 5},
			},
			policies: []string{"case-duplicates"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eng.Evaluate(context.Background(), &Input{WorkTypes: tt.workTypes})
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if !result.Allowed {
				t.Errorf("Built-in policies should never block: %+v", result.Violations)
			}
			if len(result.EvaluatedPolicies) != 3 {
				t.Errorf("Expected 3 evaluated policies, got %v", result.EvaluatedPolicies)
			}

			if len(result.Warnings) != len(tt.policies) {
				t.Fatalf("Expected %d warnings, got %+v", len(tt.policies), result.Warnings)
			}
			for i, name := range tt.policies {
				if result.Warnings[i].Policy != name {
					t.Errorf("Expected warning from %s, got %s", name, result.Warnings[i].Policy)
				}
				if result.Warnings[i].WorkType == "" {
					t.Errorf("Warning from %s should name the work type", name)
				}
			}
		})
	}
}

func TestEvaluateCustomErrorPolicy(t *testing.T) {
	eng := newTestEngine(t, WithoutBuiltins())

	err := eng.AddPolicy(context.Background(), Policy{
		Name:    "minimum-pay",
		Rego:    minimumPayPolicy,
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("AddPolicy failed: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), &Input{WorkTypes: []stores.WorkType{
		{Name: "Welder", BasePay: 20, BonusPercent: 5},
		{Name: "Trainee", BasePay: 8, BonusPercent: 0},
		{Name: "Intern", BasePay: 5, BonusPercent: 0},
	}})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Allowed {
		t.Fatal("Expected the catalog to be blocked")
	}
	if len(result.Violations) != 2 {
		t.Fatalf("Expected 2 violations, got %+v", result.Violations)
	}

	// Violations are ordered by work type.
	if result.Violations[0].WorkType != "Intern" || result.Violations[1].WorkType != "Trainee" {
		t.Errorf("Unexpected violation order: %+v", result.Violations)
	}
	if result.Violations[1].Message != "Trainee pays below the minimum" {
		t.Errorf("Unexpected message: %s", result.Violations[1].Message)
	}
	if result.Violations[0].Severity != SeverityError {
		t.Errorf("Expected error severity, got %s", result.Violations[0].Severity)
	}
}

func TestEvaluateStringDeny(t *testing.T) {
	eng := newTestEngine(t, WithoutBuiltins())

	err := eng.AddPolicy(context.Background(), Policy{
		Name: "no-replace",
		Rego: `package workcatalog.replace

deny contains "replacing the catalog is not allowed" if input.replace
`,
		Severity: SeverityError,
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("AddPolicy failed: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), &Input{Replace: false})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Merging should be allowed: %+v", result.Violations)
	}

	result, err = eng.Evaluate(context.Background(), &Input{Replace: true})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed || len(result.Violations) != 1 {
		t.Fatalf("Expected one blocking violation, got %+v", result.Violations)
	}
	if result.Violations[0].Message != "replacing the catalog is not allowed" {
		t.Errorf("Unexpected message: %s", result.Violations[0].Message)
	}
}

func TestAddPolicyRejectsBadPolicies(t *testing.T) {
	eng := newTestEngine(t, WithoutBuiltins())

	tests := []struct {
		name   string
		policy Policy
	}{
		{name: "syntax error", policy: Policy{Name: "broken", Rego: "package broken\n\ndeny contains if {"}},
		{name: "no name", policy: Policy{Rego: minimumPayPolicy}},
		{name: "unknown severity", policy: Policy{Name: "odd", Rego: minimumPayPolicy, Severity: "fatal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := eng.AddPolicy(context.Background(), tt.policy); err == nil {
				t.Error("Expected an error")
			}
		})
	}

	if n := len(eng.ListPolicies()); n != 0 {
		t.Errorf("Rejected policies should not be added, got %d", n)
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)
	input := &Input{WorkTypes: []stores.WorkType{{Name: "Volunteer"}}}

	if err := eng.DisablePolicy("zero-base-pay"); err != nil {
		t.Fatalf("DisablePolicy failed: %v", err)
	}

	policy, err := eng.GetPolicy("zero-base-pay")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if policy.Enabled {
		t.Error("Policy should be disabled")
	}

	result, err := eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Disabled policy should not warn: %+v", result.Warnings)
	}
	if len(result.EvaluatedPolicies) != 2 {
		t.Errorf("Expected 2 evaluated policies, got %v", result.EvaluatedPolicies)
	}

	if err := eng.EnablePolicy("zero-base-pay"); err != nil {
		t.Fatalf("EnablePolicy failed: %v", err)
	}
	result, err = eng.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Expected 1 warning, got %+v", result.Warnings)
	}

	if err := eng.EnablePolicy("nonexistent"); err == nil {
		t.Error("Expected error for nonexistent policy")
	}
	if _, err := eng.GetPolicy("nonexistent"); err == nil {
		t.Error("Expected error for nonexistent policy")
	}
}

func TestLoadPolicies(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "minimum-pay.rego"), []byte(minimumPayPolicy), 0644); err != nil {
		t.Fatalf("Failed to write policy: %v", err)
	}

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	if n := len(eng.ListPolicies()); n != 4 {
		t.Errorf("Expected 4 policies, got %d", n)
	}

	result, err := eng.Evaluate(context.Background(), &Input{WorkTypes: []stores.WorkType{
		{Name: "Trainee", BasePay: 8},
	}})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed {
		t.Error("Expected the loaded policy to block")
	}
}

func TestLoadPoliciesIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"good.rego":   minimumPayPolicy,
		"broken.rego": "package broken\n\ndeny contains if {",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write policy: %v", err)
		}
	}

	eng := newTestEngine(t, WithoutBuiltins())
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err == nil {
		t.Fatal("Expected LoadPolicies to fail")
	}
	if n := len(eng.ListPolicies()); n != 0 {
		t.Errorf("Expected no policies after a failed load, got %d", n)
	}
}

package policy

// BuiltinPolicies returns the policies every engine starts with. They only
// warn; a catalog that passes validation is never blocked by them.
func BuiltinPolicies() []Policy {
	return []Policy{
		bonusCeilingPolicy(),
		zeroBasePayPolicy(),
		caseDuplicatePolicy(),
	}
}

// bonusCeilingPolicy flags bonuses larger than the base pay itself.
func bonusCeilingPolicy() Policy {
	return Policy{
		Name:        "bonus-ceiling",
		Description: "Warns about bonus percentages above 100",
		Severity:    SeverityWarning,
		Enabled:     true,
		Rego: `package workcatalog.builtin.bonus_ceiling

deny contains violation if {
	some wt in input.workTypes
	wt.bonusPercent > 100
	violation := {
		"message": sprintf("work type %s has a bonus of %v percent", [wt.name, wt.bonusPercent]),
		"workType": wt.name,
	}
}
`,
	}
}

// zeroBasePayPolicy flags work types that pay nothing.
func zeroBasePayPolicy() Policy {
	return Policy{
		Name:        "zero-base-pay",
		Description: "Warns about work types with a base pay of zero",
		Severity:    SeverityWarning,
		Enabled:     true,
		Rego: `package workcatalog.builtin.zero_base_pay

deny contains violation if {
	some wt in input.workTypes
	wt.basePay == 0
	violation := {
		"message": sprintf("work type %s has no base pay", [wt.name]),
		"workType": wt.name,
	}
}
`,
	}
}

// caseDuplicatePolicy flags names that only differ in letter case. The
// store treats them as different work types.
func caseDuplicatePolicy() Policy {
	return Policy{
		Name:        "case-duplicates",
		Description: "Warns about work type names that differ only in case",
		Severity:    SeverityWarning,
		Enabled:     true,
		Rego: `package workcatalog.builtin.case_duplicates

deny contains violation if {
	some i, a in input.workTypes
	some j, b in input.workTypes
	i < j
	a.name != b.name
	lower(a.name) == lower(b.name)
	violation := {
		"message": sprintf("work types %s and %s differ only in case", [a.name, b.name]),
		"workType": b.name,
	}
}
`,
	}
}

// Package policy checks work type catalogs against Open Policy Agent (OPA)
// Rego policies before they are written.
//
// Each policy is a Rego module with a deny rule. The rule sees the rows of
// an import as input.workTypes and produces either plain messages or
// objects:
//
//	package workcatalog.pay
//
//	deny contains violation if {
//		some wt in input.workTypes
//		wt.basePay < 12
//		violation := {
//			"message": sprintf("%s pays below the minimum wage", [wt.name]),
//			"severity": "error",
//			"workType": wt.name,
//		}
//	}
//
// Violations take the policy's severity unless the object names its own.
// Error violations make Result.Allowed false and block an import; warnings
// are only reported.
//
// # Usage
//
//	engine, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := engine.LoadPolicies(ctx, []string{"./policies"}); err != nil {
//	    return err
//	}
//
//	result, err := engine.Evaluate(ctx, &policy.Input{WorkTypes: rows})
//	if err != nil {
//	    return err
//	}
//	if !result.Allowed {
//	    // report result.Violations
//	}
//
// Policy files are either .rego files, named after the file and warning by
// default, or .json files holding a Policy document.
//
// The built-in policies only warn: bonus-ceiling, zero-base-pay and
// case-duplicates. WithoutBuiltins starts an engine without them.
package policy

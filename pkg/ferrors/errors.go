// Package ferrors provides the sentinel errors, validation accumulator,
// and diagnostic-carrying error types shared across the pipeline (spec §7
// Error Handling Design).
package ferrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fabricbd/bdctl/pkg/model"
)

// Sentinel errors for precondition and outcome classes named in spec §7.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrAlreadyLocked        = errors.New("bridge domain already locked by another session")
	ErrNotLocked            = errors.New("session not in a lockable state")
	ErrValidationFailed     = errors.New("validation failed")
	ErrGoldenRuleViolation  = errors.New("VLAN fact has no traceable CLI source")
	ErrInvalidTopology      = errors.New("invalid topology adjacency")
	ErrNotEditable          = errors.New("bridge domain type has no edit template")
	ErrNotCustomerEditable  = errors.New("interface is not customer-editable")
	ErrCommitCheckFailed    = errors.New("commit-check failed")
	ErrApplyFailed          = errors.New("apply failed")
	ErrClassificationFailed = errors.New("bridge domain could not be classified")
)

// DiagnosticError wraps one of the stable diagnostic codes from spec §6 so
// callers can match on it with errors.As while still getting a normal
// error string.
type DiagnosticError struct {
	model.Diagnostic
	Wrapped error
}

func (e *DiagnosticError) Error() string {
	msg := fmt.Sprintf("%s", e.Code)
	if e.Device != "" {
		msg += fmt.Sprintf(" device=%s", e.Device)
	}
	if e.BDName != "" {
		msg += fmt.Sprintf(" bd=%s", e.BDName)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DiagnosticError) Unwrap() error { return e.Wrapped }

// NewDiagnosticError builds a DiagnosticError, wrapping one of the
// sentinels above for errors.Is matching.
func NewDiagnosticError(code model.DiagnosticCode, device, bdName, detail string, wrapped error) *DiagnosticError {
	return &DiagnosticError{
		Diagnostic: model.NewDiagnostic(code, device, bdName, detail),
		Wrapped:    wrapped,
	}
}

// ValidationError is one or more accumulated validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// ValidationBuilder accumulates validation failures across a multi-step
// check (spec §4.C4 Phase 1, §4.C8 pre-generation validation) so the
// caller gets every failure at once instead of failing on the first.
type ValidationBuilder struct {
	errors []string
}

// Require adds message if condition is false.
func (v *ValidationBuilder) Require(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// Requiref adds a formatted message if condition is false.
func (v *ValidationBuilder) Requiref(condition bool, format string, args ...interface{}) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, fmt.Sprintf(format, args...))
	}
	return v
}

// HasErrors reports whether any check failed.
func (v *ValidationBuilder) HasErrors() bool { return len(v.errors) > 0 }

// Messages returns the accumulated failure messages.
func (v *ValidationBuilder) Messages() []string { return v.errors }

// Build returns the accumulated ValidationError, or nil if nothing failed.
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrNotFound           = errors.New("not found")
	ErrMissingData        = errors.New("no data returned")
	ErrPreconditionFailed = errors.New("precondition not met")
	ErrValidationFailed   = errors.New("validation failed")
	ErrGateway            = errors.New("telemetry gateway failure")
	ErrSampleMismatch     = errors.New("port samples do not cover the same ports")
)

// PreconditionError represents a failed precondition check with context
type PreconditionError struct {
	Operation    string
	Resource     string
	Precondition string
	Details      string
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("precondition failed for %s on %s: %s", e.Operation, e.Resource, e.Precondition)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation, resource, precondition, details string) *PreconditionError {
	return &PreconditionError{
		Operation:    operation,
		Resource:     resource,
		Precondition: precondition,
		Details:      details,
	}
}

// MissingDataError reports a telemetry category whose response carried no
// usable structure. It is scoped to one category and never fatal on its own.
type MissingDataError struct {
	Category string
	Reason   string
}

func (e *MissingDataError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: no data", e.Category)
	}
	return fmt.Sprintf("%s: no data (%s)", e.Category, e.Reason)
}

func (e *MissingDataError) Unwrap() error {
	return ErrMissingData
}

// NewMissingDataError creates a missing-data error for a category
func NewMissingDataError(category, reason string) *MissingDataError {
	return &MissingDataError{Category: category, Reason: reason}
}

// GatewayError wraps a failed get/set against the device
type GatewayError struct {
	Op   string // "get" or "set"
	Path string
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gnmi %s %s: %v", e.Op, e.Path, e.Err)
}

// Is matches ErrGateway so callers can test for any gateway failure.
func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a gateway error
func NewGatewayError(op, path string, err error) *GatewayError {
	return &GatewayError{Op: op, Path: path, Err: err}
}

// SampleMismatchError lists ports seen in only one of two health samples
type SampleMismatchError struct {
	OnlyFirst  []string
	OnlySecond []string
}

func (e *SampleMismatchError) Error() string {
	var parts []string
	if len(e.OnlyFirst) > 0 {
		parts = append(parts, "missing from second sample: "+strings.Join(e.OnlyFirst, ", "))
	}
	if len(e.OnlySecond) > 0 {
		parts = append(parts, "missing from first sample: "+strings.Join(e.OnlySecond, ", "))
	}
	return "port samples differ: " + strings.Join(parts, "; ")
}

func (e *SampleMismatchError) Unwrap() error {
	return ErrSampleMismatch
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

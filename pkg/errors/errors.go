// Unified error handling for the flowcomp G-code post-processor
//
// Copyright (C) 2026  Flowcomp Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors (fatal: abort before any output is written)
	ErrConfigFile       ErrorCode = "CONFIG_FILE"
	ErrConfigProfile    ErrorCode = "CONFIG_PROFILE"
	ErrConfigCurve      ErrorCode = "CONFIG_CURVE"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// G-code parsing warnings (non-fatal: line passes through unmodified)
	ErrGCodeParse ErrorCode = "GCODE_PARSE"

	// Flow computation invariant violations
	ErrFlowDomain ErrorCode = "FLOW_DOMAIN"

	// I/O errors at the file boundary
	ErrIORead  ErrorCode = "IO_READ"
	ErrIOWrite ErrorCode = "IO_WRITE"
)

// FlowError is the unified error type for the whole module
type FlowError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Line is the G-code source line number (if applicable)
	Line int

	// Material is the material profile name (if applicable)
	Material string

	// Option is the config option in question (if applicable)
	Option string

	// Err wraps the underlying error
	Err error
}

// Error implements the error interface
func (e *FlowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s", e.Code, e.Line, e.Message)
	}
	if e.Material != "" {
		return fmt.Sprintf("[%s] material %q: %s", e.Code, e.Material, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *FlowError) Unwrap() error {
	return e.Err
}

// SetLine sets the G-code line number
func (e *FlowError) SetLine(line int) *FlowError {
	e.Line = line
	return e
}

// SetMaterial sets the material context
func (e *FlowError) SetMaterial(material string) *FlowError {
	e.Material = material
	return e
}

// SetOption sets the config option context
func (e *FlowError) SetOption(option string) *FlowError {
	e.Option = option
	return e
}

// New creates a new FlowError
func New(code ErrorCode, message string) *FlowError {
	return &FlowError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *FlowError {
	return &FlowError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Config errors

// ConfigFileError creates an error for an unreadable or malformed config file
func ConfigFileError(path string, err error) *FlowError {
	return Wrap(err, ErrConfigFile, fmt.Sprintf("unable to load configuration %q", path))
}

// ProfileError creates an error for a missing material profile
func ProfileError(material string) *FlowError {
	return New(ErrConfigProfile, "no material profile found").
		SetMaterial(material)
}

// ToolProfileError creates an error for a tool in use with no resolvable profile
func ToolProfileError(tool int) *FlowError {
	return New(ErrConfigProfile, fmt.Sprintf("tool T%d is used but no material profile is resolvable for it", tool))
}

// CurveError creates an error for invalid compensation curve points
func CurveError(material, reason string) *FlowError {
	return New(ErrConfigCurve, fmt.Sprintf("invalid curve points: %s", reason)).
		SetMaterial(material)
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(option, reason string) *FlowError {
	return New(ErrConfigValidation, fmt.Sprintf("option %q: %s", option, reason)).
		SetOption(option)
}

// G-code errors

// ParseWarning creates a non-fatal warning for an unparseable move or
// tool-change line. The line is passed through unmodified.
func ParseWarning(line int, text, reason string) *FlowError {
	return New(ErrGCodeParse, fmt.Sprintf("unparseable token in %q (%s)", text, reason)).
		SetLine(line)
}

// Flow errors

// DomainError creates an error for a flow-rate computation outside its domain
func DomainError(message string) *FlowError {
	return New(ErrFlowDomain, message)
}

// I/O errors

// ReadError creates an error for an unreadable input
func ReadError(path string, err error) *FlowError {
	return Wrap(err, ErrIORead, fmt.Sprintf("unable to read %q", path))
}

// WriteError creates an error for an unwritable output
func WriteError(path string, err error) *FlowError {
	return Wrap(err, ErrIOWrite, fmt.Sprintf("unable to write %q", path))
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if fe, ok := err.(*FlowError); ok {
		return fe.Code == code
	}
	return false
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigFile) ||
		Is(err, ErrConfigProfile) ||
		Is(err, ErrConfigCurve) ||
		Is(err, ErrConfigValidation)
}

// IsParseWarning checks if error is a recoverable G-code parse warning
func IsParseWarning(err error) bool {
	return Is(err, ErrGCodeParse)
}

// IsDomain checks if error is a flow-domain invariant violation
func IsDomain(err error) bool {
	return Is(err, ErrFlowDomain)
}

// IsIO checks if error is an I/O error
func IsIO(err error) bool {
	return Is(err, ErrIORead) || Is(err, ErrIOWrite)
}

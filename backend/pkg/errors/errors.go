package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeNotFound represents lookups that matched nothing
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation represents rejected caller input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrGraphQueryFailed is returned when a Cypher statement fails to execute
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, "query execution failed", err),
		Query:     query,
	}
}

// ErrNodeNotFound is returned when no node carries the requested label and id
type ErrNodeNotFound struct {
	*BaseError
	Label string
	ID    int64
}

func NewNodeNotFound(label string, id int64) *ErrNodeNotFound {
	return &ErrNodeNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %d", label, id), nil),
		Label:     label,
		ID:        id,
	}
}

// Validation Errors

// ErrInvalidLabel is returned for a node label or relationship type outside the allow-list
type ErrInvalidLabel struct {
	*BaseError
	Label string
}

func NewInvalidLabel(label string) *ErrInvalidLabel {
	return &ErrInvalidLabel{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("unsupported label: %q", label), nil),
		Label:     label,
	}
}

// ErrInvalidInput is returned when a request parameter cannot be used as given
type ErrInvalidInput struct {
	*BaseError
	Field string
}

func NewInvalidInput(field, reason string) *ErrInvalidInput {
	return &ErrInvalidInput{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// categorized is satisfied by every error in this package through the embedded *BaseError
type categorized interface {
	base() *BaseError
}

func (e *BaseError) base() *BaseError { return e }

func baseOf(err error) *BaseError {
	for err != nil {
		if c, ok := err.(categorized); ok {
			return c.base()
		}
		err = errors.Unwrap(err)
	}
	return nil
}

// IsErrorType reports whether err, or any error it wraps, is of the given type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if c, ok := err.(categorized); ok && c.base().Type == errType {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// TypeOf returns the type of the first categorized error in err's chain, or "" if none
func TypeOf(err error) ErrorType {
	if b := baseOf(err); b != nil {
		return b.Type
	}
	return ""
}

// MessageOf returns the message of the first categorized error in err's
// chain without its type prefix or cause, falling back to err.Error()
func MessageOf(err error) string {
	if b := baseOf(err); b != nil {
		return b.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation indicates a command the client can fix and resend
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeDurability indicates a command that was computed correctly in
	// memory but whose persisted write failed; nothing was saved and the
	// caller must retry the whole command
	ErrorTypeDurability ErrorType = "durability"
	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeMethodNotAllowed indicates an unsupported HTTP method
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"
)

// Code identifies the specific rule a validation failure tripped.
type Code string

const (
	CodeNotOwned             Code = "not_owned"
	CodeInsufficientForce    Code = "insufficient_force"
	CodeInsufficientResource Code = "insufficient_resource"
	CodeUnreachable          Code = "unreachable"
	CodeOutOfMoves           Code = "out_of_moves"
	CodeNotYourTurn          Code = "not_your_turn"
	CodeMaxLevelReached      Code = "max_level_reached"
	CodeAlreadyEliminated    Code = "already_eliminated"
	CodeInvalidReference     Code = "invalid_reference"
	CodeGameNotActive        Code = "game_not_active"
)

// AppError is the base error type for application errors
type AppError struct {
	Type    ErrorType
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFoundf creates a not found error with formatting
func NotFoundf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a validation error
func Validation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// Validationf creates a validation error with formatting
func Validationf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Rejection creates a validation error carrying the rule code it tripped
func Rejection(code Code, format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapValidation wraps an error as a validation error
func WrapValidation(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Err:     err,
	}
}

// Conflictf creates a conflict error with formatting
func Conflictf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapDurability wraps a failed store write. The distinction from internal
// errors matters: the command was valid and computed, but not persisted.
func WrapDurability(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeDurability,
		Message: message,
		Err:     err,
	}
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// MethodNotAllowed creates a method not allowed error
func MethodNotAllowed(method string) error {
	return &AppError{
		Type:    ErrorTypeMethodNotAllowed,
		Message: fmt.Sprintf("method %s not allowed", method),
	}
}

// GetType returns the error type of an error
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetCode returns the rule code of an error, or an empty code
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsDurability reports whether the error is a durability failure
func IsDurability(err error) bool {
	return GetType(err) == ErrorTypeDurability
}

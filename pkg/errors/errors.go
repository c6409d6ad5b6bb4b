// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the closed set of error kinds used across skillhub.
// Every failure surfaced to a user is mapped to exactly one kind.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error kinds
const (
	// ErrValidation is returned for malformed input, schema violations and missing fields
	ErrValidation = "validation"

	// ErrConfiguration is returned for a missing wallet, missing registry address or bad URL
	ErrConfiguration = "configuration"

	// ErrAuthorization is returned when a wallet is not connected, the user rejected a
	// signature request, permission was denied, or funds are insufficient
	ErrAuthorization = "authorization"

	// ErrNetwork is returned for transport failures, timeouts and gateway 5xx responses
	ErrNetwork = "network"

	// ErrFileSystem is returned for permission, disk and path collision problems
	ErrFileSystem = "filesystem"

	// ErrDependency is returned for cycles, missing dependencies and version conflicts
	ErrDependency = "dependency"

	// ErrCancelled is a synthetic kind for user cancellation. It is rendered to the
	// user as a network error but keeps its own type internally so orchestrators can
	// distinguish an abort from a genuine transport failure.
	ErrCancelled = "cancelled"
)

// Error represents an error in the application
type Error struct {
	// Type is the error kind
	Type string

	// Message is the error message
	Message string

	// Solution is an optional remediation hint shown to the user
	Solution string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSolution attaches a remediation hint and returns the error for chaining.
func (e *Error) WithSolution(solution string) *Error {
	e.Solution = solution
	return e
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *Error {
	return NewError(ErrValidation, message, cause)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string, cause error) *Error {
	return NewError(ErrConfiguration, message, cause)
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(message string, cause error) *Error {
	return NewError(ErrAuthorization, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *Error {
	return NewError(ErrNetwork, message, cause)
}

// NewFileSystemError creates a new filesystem error
func NewFileSystemError(message string, cause error) *Error {
	return NewError(ErrFileSystem, message, cause)
}

// NewDependencyError creates a new dependency error
func NewDependencyError(message string, cause error) *Error {
	return NewError(ErrDependency, message, cause)
}

// NewCancelledError creates a new cancelled error
func NewCancelledError(message string, cause error) *Error {
	return NewError(ErrCancelled, message, cause)
}

// As extracts an *Error from err's chain, or nil if there is none.
func As(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return nil
}

func isType(err error, errorType string) bool {
	e := As(err)
	return e != nil && e.Type == errorType
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrValidation)
}

// IsConfiguration checks if the error is a configuration error
func IsConfiguration(err error) bool {
	return isType(err, ErrConfiguration)
}

// IsAuthorization checks if the error is an authorization error
func IsAuthorization(err error) bool {
	return isType(err, ErrAuthorization)
}

// IsNetwork checks if the error is a network error
func IsNetwork(err error) bool {
	return isType(err, ErrNetwork)
}

// IsFileSystem checks if the error is a filesystem error
func IsFileSystem(err error) bool {
	return isType(err, ErrFileSystem)
}

// IsDependency checks if the error is a dependency error
func IsDependency(err error) bool {
	return isType(err, ErrDependency)
}

// IsCancelled checks if the error is a cancelled error
func IsCancelled(err error) bool {
	return isType(err, ErrCancelled)
}

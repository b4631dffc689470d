/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when a collaborator denies access
	ErrForbidden = errors.New("access forbidden")

	// ErrStreamConsumed is returned when a single-pass stream is iterated again
	ErrStreamConsumed = errors.New("stream already consumed")
)

// NotFoundError reports a record missing from a table
type NotFoundError struct {
	Table        string
	PartitionKey string
	RowKey       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %q not found in table %s", e.PartitionKey+"/"+e.RowKey, e.Table)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ForbiddenError represents an authorization denial reported by a remote service
type ForbiddenError struct {
	Service string
	Message string
}

func (e *ForbiddenError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: access forbidden: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s: access forbidden", e.Service)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(table, partitionKey, rowKey string) error {
	return &NotFoundError{Table: table, PartitionKey: partitionKey, RowKey: rowKey}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewForbiddenError creates a new ForbiddenError
func NewForbiddenError(service, message string) error {
	return &ForbiddenError{Service: service, Message: message}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsForbidden checks if an error is an authorization denial
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

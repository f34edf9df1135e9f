package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedTask is returned when a serialized task cannot be decoded.
	ErrMalformedTask = errors.New("malformed task payload")

	// ErrInvalidTaskKey is returned when a task key is not of the form projectId:sprintId.
	ErrInvalidTaskKey = errors.New("invalid task key")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)

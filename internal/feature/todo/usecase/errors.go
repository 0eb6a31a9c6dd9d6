// Package usecase implements the business logic for the todo feature.
package usecase

import "errors"

var (
	// ErrTodoNotFound is returned when no todo has the requested id.
	ErrTodoNotFound = errors.New("todo not found")

	// ErrUserNotFound is returned when the owning user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUserID is returned when a user id is not a UUID.
	ErrInvalidUserID = errors.New("invalid user_id format")

	// ErrInvalidField wraps every field-level validation failure.
	ErrInvalidField = errors.New("invalid field")
)

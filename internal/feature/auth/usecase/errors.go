// Package usecase implements the business logic for the auth feature.
package usecase

import "errors"

var (
	// ErrUserNotFound is returned when a user cannot be found by email or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists is returned when attempting to create a user with an email that already exists.
	ErrEmailAlreadyExists = errors.New("email already registered")

	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidResetToken is returned when a reset token fails verification or lacks a subject.
	ErrInvalidResetToken = errors.New("invalid token")

	// ErrResetTokenUsed is returned when a reset token has already been redeemed.
	ErrResetTokenUsed = errors.New("token already used")

	// ErrInvalidPassword is returned when a password cannot be hashed (bcrypt accepts at most 72 bytes).
	ErrInvalidPassword = errors.New("password is too long")
)

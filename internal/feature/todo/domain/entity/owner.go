package entity

import "github.com/google/uuid"

// Owner is the read-only view of a user that the todo feature needs.
type Owner struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

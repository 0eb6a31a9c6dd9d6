// Package entity defines the domain entities for the todo feature.
package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// MaxTitleLength is the maximum number of characters in a title.
	MaxTitleLength = 200
	// MaxDescriptionLength is the maximum number of characters in a description.
	MaxDescriptionLength = 500

	StatusActive = 1
)

// Todo is a single item on a user's list.
type Todo struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"size:200;not null"`
	Description *string   `gorm:"size:500"`
	IsDone      bool      `gorm:"not null;default:false"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null"`

	// Timestamps are set by the usecase clock, not by gorm.
	CreatedAt time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;not null"`

	Status int `gorm:"not null;default:1"`
}

// BeforeCreate assigns a random id when none was set.
func (t *Todo) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

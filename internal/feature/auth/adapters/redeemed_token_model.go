package adapters

import "time"

// RedeemedTokenModel is the GORM model for the redeemed_tokens table.
// A row marks a reset token id as spent.
type RedeemedTokenModel struct {
	JTI        string    `gorm:"primaryKey;size:64"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	RedeemedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (RedeemedTokenModel) TableName() string {
	return "redeemed_tokens"
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a forum member. Rows are created lazily on first successful
// authentication and never deleted by this system. Passwords are stored as
// bcrypt hashes only; OAuth and magic-link users have none.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProviderID   string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;index" json:"-"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	AvatarURL    string    `gorm:"size:512" json:"avatar_url"`
	Bio          string    `gorm:"size:500" json:"bio"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

package models

import "time"

// User represents a registered account. Passwords are stored as bcrypt hashes only.
// Posts and comments reference users by id; there are no back-references here,
// lookups go through explicit queries in the controllers.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null;column:password_hash" json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

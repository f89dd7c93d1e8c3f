package users

import "time"

// User is an account record. Accounts are created at signup and never
// updated or deleted afterwards.
type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null"`
	Username     string    `gorm:"column:username;size:100;not null;uniqueIndex:idx_users_username"`
	PasswordHash string    `gorm:"column:password_hash;size:200;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

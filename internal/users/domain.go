package users

import "time"

// User represents a forum account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsAdmin      bool
	CreatedAt    time.Time
}

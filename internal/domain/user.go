package domain

import "time"

// User represents an application user stored in the database.
// Users are created on first contact and never deleted.
type User struct {
	ID         int64
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
	IsAdmin    bool
	CreatedAt  time.Time
}

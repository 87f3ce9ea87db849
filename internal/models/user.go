package models

import "time"

// User is the global profile of an authenticated user.
type User struct {
	ID          string    `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Email       string    `json:"email" db:"email"`
	Bands       []string  `json:"bands"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// InBand reports whether bandID is listed among the user's bands.
func (u *User) InBand(bandID string) bool {
	for _, id := range u.Bands {
		if id == bandID {
			return true
		}
	}
	return false
}

package models

import "time"

// JoinRequest is a pending application to join a band.
type JoinRequest struct {
	BandID      string    `json:"band_id" db:"band_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Message     string    `json:"message" db:"message"`
	Approved    bool      `json:"approved" db:"approved"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

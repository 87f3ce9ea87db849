package models

import "time"

// Response is a member's attendance answer to an event
type Response string

const (
	ResponseYes   Response = "yes"
	ResponseNo    Response = "no"
	ResponseSub   Response = "sub"
	ResponseMaybe Response = "maybe"
	ResponseUnset Response = ""
)

// Valid reports whether r is one of the known responses, unset included.
func (r Response) Valid() bool {
	switch r {
	case ResponseYes, ResponseNo, ResponseSub, ResponseMaybe, ResponseUnset:
		return true
	}
	return false
}

// Label returns the response as shown to users.
func (r Response) Label() string {
	switch r {
	case ResponseYes:
		return "Yes"
	case ResponseNo:
		return "No"
	case ResponseSub:
		return "Sub"
	case ResponseMaybe:
		return "Maybe"
	}
	return "?"
}

// Participant is one member's response to one event.
type Participant struct {
	BandID    string    `json:"band_id" db:"band_id"`
	EventID   string    `json:"event_id" db:"event_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Response  Response  `json:"response" db:"response"`
	Comment   string    `json:"comment" db:"comment"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

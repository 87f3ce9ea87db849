package models

import (
	"fmt"
	"strings"
	"time"
)

// EventType is the kind of a band event
type EventType string

const (
	EventTypeRehearsal EventType = "rehearsal"
	EventTypeGig       EventType = "gig"
	EventTypeMeeting   EventType = "meeting"
	EventTypeOther     EventType = "other"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeRehearsal, EventTypeGig, EventTypeMeeting, EventTypeOther:
		return true
	}
	return false
}

// EventTimeLayout is the ISO-like local layout used by the web front-end.
const EventTimeLayout = "2006-01-02T15:04"

var eventTimeLayouts = []string{
	EventTimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ParseEventTime parses an event start/stop timestamp. Timestamps without a
// zone are read in loc.
func ParseEventTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid event time %q", raw)
}

// BandEvent is a scheduled rehearsal, gig or similar owned by a band.
type BandEvent struct {
	ID          string     `json:"id" db:"id"`
	BandID      string     `json:"band_id" db:"band_id"`
	Type        EventType  `json:"type" db:"type"`
	Start       time.Time  `json:"start" db:"start_time"`
	Stop        *time.Time `json:"stop,omitempty" db:"stop_time"`
	Location    string     `json:"location" db:"location"`
	Description string     `json:"description" db:"description"`
	Cancelled   bool       `json:"cancelled" db:"cancelled"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	RemindedAt  *time.Time `json:"-" db:"reminded_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Title returns a short human readable label for the event.
func (e *BandEvent) Title() string {
	label := "Event"
	if e.Type != "" {
		label = strings.ToUpper(string(e.Type[:1])) + string(e.Type[1:])
	}
	if e.Location != "" {
		label += " @ " + e.Location
	}
	if e.Cancelled {
		label += " (cancelled)"
	}
	return label
}

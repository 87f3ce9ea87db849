// Package attendance merges a band's roster with the responses stored for an
// event and counts them.
package attendance

import (
	"sort"
	"strings"

	"github.com/narvarokollen/narvaro/internal/models"
)

// Row is one roster line of an event: a member and their answer.
type Row struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Instrument  string          `json:"instrument"`
	Response    models.Response `json:"response"`
	Comment     string          `json:"comment"`
	// Guest marks a response from someone who is no longer on the roster.
	Guest bool `json:"guest,omitempty"`
}

// Counts holds the number of members per response.
type Counts struct {
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Sub   int `json:"sub"`
	Maybe int `json:"maybe"`
	Unset int `json:"unset"`
}

// Attending is the number of people expected to show up.
func (c Counts) Attending() int {
	return c.Yes + c.Sub
}

// Add counts one response.
func (c *Counts) Add(r models.Response) {
	switch r {
	case models.ResponseYes:
		c.Yes++
	case models.ResponseNo:
		c.No++
	case models.ResponseSub:
		c.Sub++
	case models.ResponseMaybe:
		c.Maybe++
	default:
		c.Unset++
	}
}

// Summary is the aggregated view of one event.
type Summary struct {
	EventID   string `json:"event_id"`
	Counts    Counts `json:"counts"`
	Attending int    `json:"attending"`
	Rows      []Row  `json:"rows"`
}

// Merge fills the roster with stored responses. Members without a response
// get an unset row. Responses from users no longer on the roster are kept as
// guest rows so nothing a user wrote disappears from view. Rows are ordered
// by display name, guests last.
func Merge(members []*models.Member, participants []*models.Participant) []Row {
	byUser := make(map[string]*models.Participant, len(participants))
	for _, p := range participants {
		byUser[p.UserID] = p
	}

	rows := make([]Row, 0, len(members)+len(participants))
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		row := Row{UserID: m.UserID, DisplayName: m.DisplayName, Instrument: m.Instrument}
		if p, ok := byUser[m.UserID]; ok {
			row.Response = normalize(p.Response)
			row.Comment = p.Comment
		}
		rows = append(rows, row)
		seen[m.UserID] = true
	}

	for _, p := range participants {
		if seen[p.UserID] {
			continue
		}
		rows = append(rows, Row{
			UserID:   p.UserID,
			Response: normalize(p.Response),
			Comment:  p.Comment,
			Guest:    true,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Guest != rows[j].Guest {
			return !rows[i].Guest
		}
		return strings.ToLower(rows[i].DisplayName) < strings.ToLower(rows[j].DisplayName)
	})
	return rows
}

// Count tallies the responses of rows.
func Count(rows []Row) Counts {
	var c Counts
	for _, r := range rows {
		c.Add(r.Response)
	}
	return c
}

// Summarize merges and counts in one go.
func Summarize(eventID string, members []*models.Member, participants []*models.Participant) Summary {
	rows := Merge(members, participants)
	counts := Count(rows)
	return Summary{
		EventID:   eventID,
		Counts:    counts,
		Attending: counts.Attending(),
		Rows:      rows,
	}
}

// ResponseOf returns the response of userID in rows, unset when absent.
func ResponseOf(rows []Row, userID string) models.Response {
	for _, r := range rows {
		if r.UserID == userID {
			return r.Response
		}
	}
	return models.ResponseUnset
}

// Unanswered returns the roster members that have not responded yet.
func Unanswered(members []*models.Member, participants []*models.Participant) []*models.Member {
	answered := make(map[string]bool, len(participants))
	for _, p := range participants {
		if normalize(p.Response) != models.ResponseUnset {
			answered[p.UserID] = true
		}
	}
	var out []*models.Member
	for _, m := range members {
		if !answered[m.UserID] {
			out = append(out, m)
		}
	}
	return out
}

func normalize(r models.Response) models.Response {
	if r.Valid() {
		return r
	}
	return models.ResponseUnset
}

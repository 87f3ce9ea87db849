package models

import "time"

// Band represents an ensemble using the app.
type Band struct {
	ID          string            `json:"id" db:"id"`
	DisplayName string            `json:"display_name" db:"display_name"`
	Description string            `json:"description" db:"description"`
	ACL         ACL               `json:"acl"`
	Members     map[string]string `json:"members"` // user id -> display name
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// ACL lists the users allowed into a band.
type ACL struct {
	Admins  []string `json:"admins"`
	Members []string `json:"members"`
}

// ACLFromMembers builds the access-control list of a band from its roster.
func ACLFromMembers(members []*Member) ACL {
	acl := ACL{Admins: []string{}, Members: []string{}}
	for _, m := range members {
		acl.Members = append(acl.Members, m.UserID)
		if m.Admin {
			acl.Admins = append(acl.Admins, m.UserID)
		}
	}
	return acl
}

// IsMember reports whether userID is in the ACL.
func (a ACL) IsMember(userID string) bool {
	return contains(a.Members, userID)
}

// IsAdmin reports whether userID is an admin in the ACL.
func (a ACL) IsAdmin(userID string) bool {
	return contains(a.Admins, userID)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Host maps a custom domain to a band.
type Host struct {
	Host   string `json:"host" db:"host"`
	BandID string `json:"band_id" db:"band_id"`
}

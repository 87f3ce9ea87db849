// Package access holds the rules deciding who may read and write which band
// documents. Every rule is a pure function so the rule set can be tested
// without a database.
package access

import "errors"

var (
	// ErrUnauthenticated is returned when a rule needs a signed-in user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the user is signed in but not allowed.
	ErrForbidden = errors.New("permission denied")
)

// Principal is the caller of an operation.
type Principal struct {
	UserID string
	Name   string
	Email  string
}

// Anonymous is the principal of unauthenticated requests.
var Anonymous = Principal{}

// Authenticated reports whether the principal carries a user id.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// Membership is the principal's standing in one band.
type Membership struct {
	Member bool
	Admin  bool
}

func requireAuth(p Principal) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func requireMember(p Principal, m Membership) error {
	if err := requireAuth(p); err != nil {
		return err
	}
	if !m.Member {
		return ErrForbidden
	}
	return nil
}

func requireAdmin(p Principal, m Membership) error {
	if err := requireMember(p, m); err != nil {
		return err
	}
	if !m.Admin {
		return ErrForbidden
	}
	return nil
}

// ReadBand allows anyone, signed in or not, to read a single band document.
func ReadBand(Principal) error {
	return nil
}

// ListBands allows a signed-in user to list the bands they belong to. The
// band collection as a whole is never listable.
func ListBands(p Principal, ownerID string) error {
	if err := requireAuth(p); err != nil {
		return err
	}
	if p.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}

// CreateBand allows any signed-in user to start a band.
func CreateBand(p Principal) error {
	return requireAuth(p)
}

// WriteBand covers band document updates, deletion and host mappings.
func WriteBand(p Principal, m Membership) error {
	return requireAdmin(p, m)
}

// ReadMembers allows members to see the roster.
func ReadMembers(p Principal, m Membership) error {
	return requireMember(p, m)
}

// UpdateMember lets members edit their own profile and admins edit anyone's.
// Nobody may change their own admin flag.
func UpdateMember(p Principal, m Membership, targetID string, currentAdmin, newAdmin bool) error {
	if err := requireMember(p, m); err != nil {
		return err
	}
	if currentAdmin != newAdmin && p.UserID == targetID {
		return ErrForbidden
	}
	if m.Admin {
		return nil
	}
	if p.UserID != targetID {
		return ErrForbidden
	}
	return nil
}

// RemoveMember lets admins remove anyone and members leave on their own.
func RemoveMember(p Principal, m Membership, targetID string) error {
	if err := requireMember(p, m); err != nil {
		return err
	}
	if m.Admin || p.UserID == targetID {
		return nil
	}
	return ErrForbidden
}

// MemberSettings are private to the member they belong to.
func MemberSettings(p Principal, m Membership, targetID string) error {
	if err := requireMember(p, m); err != nil {
		return err
	}
	if p.UserID != targetID {
		return ErrForbidden
	}
	return nil
}

// ReadEvents allows members to list and read events.
func ReadEvents(p Principal, m Membership) error {
	return requireMember(p, m)
}

// WriteEvent allows admins to create, change, cancel and delete events.
func WriteEvent(p Principal, m Membership) error {
	return requireAdmin(p, m)
}

// WriteResponse lets a member answer for themselves and admins for anyone.
func WriteResponse(p Principal, m Membership, targetID string) error {
	if err := requireMember(p, m); err != nil {
		return err
	}
	if m.Admin || p.UserID == targetID {
		return nil
	}
	return ErrForbidden
}

// CreateJoinRequest lets a signed-in user apply for themselves. Admins may
// also write a request for someone else, and only admins may write a
// request that is already approved.
func CreateJoinRequest(p Principal, m Membership, targetID string, approved bool) error {
	if err := requireAuth(p); err != nil {
		return err
	}
	if p.UserID != targetID && !m.Admin {
		return ErrForbidden
	}
	if approved && !m.Admin {
		return ErrForbidden
	}
	return nil
}

// ReadJoinRequests allows admins to see pending requests.
func ReadJoinRequests(p Principal, m Membership) error {
	return requireAdmin(p, m)
}

// ApproveJoinRequest allows admins to approve requests of other users.
func ApproveJoinRequest(p Principal, m Membership, requesterID string) error {
	if err := requireAdmin(p, m); err != nil {
		return err
	}
	if p.UserID == requesterID {
		return ErrForbidden
	}
	return nil
}

// DeleteJoinRequest lets admins reject a request and requesters withdraw it.
func DeleteJoinRequest(p Principal, m Membership, requesterID string) error {
	if err := requireAuth(p); err != nil {
		return err
	}
	if p.UserID == requesterID {
		return nil
	}
	return requireAdmin(p, m)
}

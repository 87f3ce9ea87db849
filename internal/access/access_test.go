package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	anna   = Principal{UserID: "anna"}
	bo     = Principal{UserID: "bo"}
	admin  = Membership{Member: true, Admin: true}
	member = Membership{Member: true}
	none   = Membership{}
)

func TestBandRules(t *testing.T) {
	t.Run("unauthenticated user can read a band but not list bands", func(t *testing.T) {
		assert.NoError(t, ReadBand(Anonymous))
		assert.ErrorIs(t, ListBands(Anonymous, ""), ErrUnauthenticated)
	})

	t.Run("user lists only own bands", func(t *testing.T) {
		assert.NoError(t, ListBands(anna, "anna"))
		assert.ErrorIs(t, ListBands(anna, "bo"), ErrForbidden)
	})

	t.Run("only admins write bands", func(t *testing.T) {
		assert.NoError(t, WriteBand(anna, admin))
		assert.ErrorIs(t, WriteBand(anna, member), ErrForbidden)
		assert.ErrorIs(t, WriteBand(Anonymous, none), ErrUnauthenticated)
	})

	t.Run("signed in users create bands", func(t *testing.T) {
		assert.NoError(t, CreateBand(anna))
		assert.ErrorIs(t, CreateBand(Anonymous), ErrUnauthenticated)
	})
}

func TestEventRules(t *testing.T) {
	t.Run("member can list events but non-member cannot", func(t *testing.T) {
		assert.NoError(t, ReadEvents(anna, member))
		assert.ErrorIs(t, ReadEvents(anna, none), ErrForbidden)
		assert.ErrorIs(t, ReadEvents(Anonymous, none), ErrUnauthenticated)
	})

	t.Run("only admins write events", func(t *testing.T) {
		assert.NoError(t, WriteEvent(anna, admin))
		assert.ErrorIs(t, WriteEvent(anna, member), ErrForbidden)
	})

	t.Run("members answer for themselves", func(t *testing.T) {
		assert.NoError(t, WriteResponse(anna, member, "anna"))
		assert.ErrorIs(t, WriteResponse(anna, member, "bo"), ErrForbidden)
		assert.NoError(t, WriteResponse(anna, admin, "bo"))
		assert.ErrorIs(t, WriteResponse(anna, none, "anna"), ErrForbidden)
	})
}

func TestMemberRules(t *testing.T) {
	t.Run("member cannot grant themselves admin", func(t *testing.T) {
		assert.ErrorIs(t, UpdateMember(anna, member, "anna", false, true), ErrForbidden)
	})

	t.Run("admin cannot change own admin flag", func(t *testing.T) {
		assert.ErrorIs(t, UpdateMember(anna, admin, "anna", true, false), ErrForbidden)
	})

	t.Run("admin promotes others", func(t *testing.T) {
		assert.NoError(t, UpdateMember(anna, admin, "bo", false, true))
	})

	t.Run("member edits own profile only", func(t *testing.T) {
		assert.NoError(t, UpdateMember(anna, member, "anna", false, false))
		assert.ErrorIs(t, UpdateMember(anna, member, "bo", false, false), ErrForbidden)
	})

	t.Run("leave or remove", func(t *testing.T) {
		assert.NoError(t, RemoveMember(anna, member, "anna"))
		assert.ErrorIs(t, RemoveMember(anna, member, "bo"), ErrForbidden)
		assert.NoError(t, RemoveMember(anna, admin, "bo"))
	})

	t.Run("settings are private", func(t *testing.T) {
		assert.NoError(t, MemberSettings(anna, member, "anna"))
		assert.ErrorIs(t, MemberSettings(anna, admin, "bo"), ErrForbidden)
	})

	t.Run("roster is for members", func(t *testing.T) {
		assert.NoError(t, ReadMembers(bo, member))
		assert.ErrorIs(t, ReadMembers(bo, none), ErrForbidden)
	})
}

func TestJoinRequestRules(t *testing.T) {
	t.Run("non-admin cannot pre-approve own join request", func(t *testing.T) {
		assert.NoError(t, CreateJoinRequest(bo, none, "bo", false))
		assert.ErrorIs(t, CreateJoinRequest(bo, none, "bo", true), ErrForbidden)
		assert.ErrorIs(t, CreateJoinRequest(bo, member, "bo", true), ErrForbidden)
	})

	t.Run("requests are written for oneself", func(t *testing.T) {
		assert.ErrorIs(t, CreateJoinRequest(bo, none, "anna", false), ErrForbidden)
		assert.ErrorIs(t, CreateJoinRequest(bo, member, "carl", false), ErrForbidden)
		assert.ErrorIs(t, CreateJoinRequest(Anonymous, none, "", false), ErrUnauthenticated)
	})

	t.Run("admins write approved requests for others", func(t *testing.T) {
		assert.NoError(t, CreateJoinRequest(anna, admin, "carl", true))
		assert.NoError(t, CreateJoinRequest(anna, admin, "carl", false))
	})

	t.Run("join request cannot be self-approved", func(t *testing.T) {
		assert.ErrorIs(t, ApproveJoinRequest(anna, admin, "anna"), ErrForbidden)
		assert.NoError(t, ApproveJoinRequest(anna, admin, "bo"))
		assert.ErrorIs(t, ApproveJoinRequest(bo, member, "carl"), ErrForbidden)
	})

	t.Run("admins read requests", func(t *testing.T) {
		assert.NoError(t, ReadJoinRequests(anna, admin))
		assert.ErrorIs(t, ReadJoinRequests(bo, member), ErrForbidden)
	})

	t.Run("withdraw or reject", func(t *testing.T) {
		assert.NoError(t, DeleteJoinRequest(bo, none, "bo"))
		assert.NoError(t, DeleteJoinRequest(anna, admin, "bo"))
		assert.ErrorIs(t, DeleteJoinRequest(anna, member, "bo"), ErrForbidden)
	})
}

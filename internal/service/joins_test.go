package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvarokollen/narvaro/internal/access"
)

func TestJoinRequests(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)

	t.Run("Testcase #1: outsider asks to join", func(t *testing.T) {
		req, err := s.Join(ctx, cecilia, band.ID, JoinInput{Message: " Alto sax "})
		require.NoError(t, err)
		assert.Equal(t, "Cecilia", req.DisplayName)
		assert.Equal(t, "Alto sax", req.Message)
		assert.False(t, req.Approved)
	})

	t.Run("Testcase #2: requester cannot approve own request", func(t *testing.T) {
		_, err := s.Join(ctx, cecilia, band.ID, JoinInput{Approved: true})
		assert.ErrorIs(t, err, access.ErrForbidden)
		_, err = s.ApproveJoinRequest(ctx, cecilia, band.ID, "cecilia")
		assert.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("Testcase #3: only admins see requests", func(t *testing.T) {
		_, err := s.ListJoinRequests(ctx, bo, band.ID)
		assert.ErrorIs(t, err, access.ErrForbidden)
		reqs, err := s.ListJoinRequests(ctx, anna, band.ID)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, "cecilia", reqs[0].UserID)
	})

	t.Run("Testcase #4: members cannot join again", func(t *testing.T) {
		_, err := s.Join(ctx, bo, band.ID, JoinInput{})
		assert.ErrorIs(t, err, ErrConflict)
		_, err = s.Join(ctx, access.Anonymous, band.ID, JoinInput{})
		assert.ErrorIs(t, err, access.ErrUnauthenticated)
	})

	t.Run("Testcase #5: approval admits the requester", func(t *testing.T) {
		member, err := s.ApproveJoinRequest(ctx, anna, band.ID, "cecilia")
		require.NoError(t, err)
		require.NotNil(t, member)
		assert.False(t, member.Admin)
		assert.Equal(t, "Cecilia", member.DisplayName)

		got, err := s.GetBand(ctx, cecilia, band.ID)
		require.NoError(t, err)
		assert.True(t, got.ACL.IsMember("cecilia"))

		bands, err := s.ListMyBands(ctx, cecilia)
		require.NoError(t, err)
		assert.Len(t, bands, 1)

		reqs, err := s.ListJoinRequests(ctx, anna, band.ID)
		require.NoError(t, err)
		assert.Empty(t, reqs)
	})

	t.Run("Testcase #6: approving a missing request", func(t *testing.T) {
		_, err := s.ApproveJoinRequest(ctx, anna, band.ID, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAdminWrittenJoin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)
	dag := access.Principal{UserID: "dag", Name: "Dag"}
	_, err := s.EnsureUser(ctx, dag)
	require.NoError(t, err)

	t.Run("Testcase #1: members cannot write requests for others", func(t *testing.T) {
		_, err := s.Join(ctx, bo, band.ID, JoinInput{UserID: "dag"})
		assert.ErrorIs(t, err, access.ErrForbidden)
		_, err = s.Join(ctx, bo, band.ID, JoinInput{UserID: "dag", Approved: true})
		assert.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("Testcase #2: unknown users cannot be added", func(t *testing.T) {
		_, err := s.Join(ctx, anna, band.ID, JoinInput{UserID: "ghost", Approved: true})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Testcase #3: approved request is applied at once", func(t *testing.T) {
		sub, _, err := s.Watch(ctx, bo, band.ID, WatchMembers, "")
		require.NoError(t, err)
		defer sub.Close()

		req, err := s.Join(ctx, anna, band.ID, JoinInput{UserID: "dag", Message: "Welcome", Approved: true})
		require.NoError(t, err)
		assert.True(t, req.Approved)
		assert.Equal(t, "Dag", req.DisplayName)

		member, err := s.Members.Get(ctx, band.ID, "dag")
		require.NoError(t, err)
		require.NotNil(t, member)
		assert.False(t, member.Admin)

		reqs, err := s.ListJoinRequests(ctx, anna, band.ID)
		require.NoError(t, err)
		assert.Empty(t, reqs)

		bands, err := s.ListMyBands(ctx, dag)
		require.NoError(t, err)
		require.Len(t, bands, 1)
		assert.Equal(t, band.ID, bands[0].ID)

		snap := <-sub.C()
		assert.Len(t, snap.Data, 3)
	})

	t.Run("Testcase #4: adding an existing member conflicts", func(t *testing.T) {
		_, err := s.Join(ctx, anna, band.ID, JoinInput{UserID: "bo", Approved: true})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Testcase #5: admin may file an unapproved request for someone", func(t *testing.T) {
		eve := access.Principal{UserID: "eve", Name: "Eve"}
		_, err := s.EnsureUser(ctx, eve)
		require.NoError(t, err)

		req, err := s.Join(ctx, anna, band.ID, JoinInput{UserID: "eve"})
		require.NoError(t, err)
		assert.False(t, req.Approved)

		_, err = s.ApproveJoinRequest(ctx, anna, band.ID, "eve")
		require.NoError(t, err)
	})
}

func TestRejectJoinRequest(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)

	_, err := s.Join(ctx, cecilia, band.ID, JoinInput{})
	require.NoError(t, err)

	t.Run("Testcase #1: other members cannot reject", func(t *testing.T) {
		assert.ErrorIs(t, s.RejectJoinRequest(ctx, bo, band.ID, "cecilia"), access.ErrForbidden)
	})

	t.Run("Testcase #2: requester withdraws", func(t *testing.T) {
		require.NoError(t, s.RejectJoinRequest(ctx, cecilia, band.ID, "cecilia"))
		assert.ErrorIs(t, s.RejectJoinRequest(ctx, anna, band.ID, "cecilia"), ErrNotFound)
	})
}

func TestJoinNotifiesAdmins(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)

	_, err := s.UpdateSettings(ctx, anna, band.ID, "anna", SettingsInput{TelegramChatID: 7})
	require.NoError(t, err)
	_, err = s.UpdateSettings(ctx, bo, band.ID, "bo", SettingsInput{TelegramChatID: 42})
	require.NoError(t, err)

	n := new(mockNotifier)
	n.On("Notify", int64(7), mockContains("Cecilia wants to join")).Return(nil).Once()
	s.SetNotifier(n)

	_, err = s.Join(ctx, cecilia, band.ID, JoinInput{})
	require.NoError(t, err)
	n.AssertExpectations(t)
	n.AssertNumberOfCalls(t, "Notify", 1)
}

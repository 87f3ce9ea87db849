package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/attendance"
	"github.com/narvarokollen/narvaro/internal/live"
	"github.com/narvarokollen/narvaro/internal/models"
)

func TestWatch(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)
	event, err := s.CreateEvent(ctx, anna, band.ID, EventInput{Start: "2026-11-02T19:00"})
	require.NoError(t, err)

	t.Run("Testcase #1: initial snapshot then updates", func(t *testing.T) {
		sub, initial, err := s.Watch(ctx, bo, band.ID, WatchParticipants, event.ID)
		require.NoError(t, err)
		defer sub.Close()

		summary := initial.Data.(*attendance.Summary)
		assert.Equal(t, 2, summary.Counts.Unset)

		_, err = s.SetResponse(ctx, anna, band.ID, event.ID, "anna", models.ResponseYes, "")
		require.NoError(t, err)

		select {
		case snap := <-sub.C():
			assert.Equal(t, 1, snap.Data.(*attendance.Summary).Counts.Yes)
		case <-time.After(time.Second):
			t.Fatal("no snapshot")
		}
	})

	t.Run("Testcase #2: events and members", func(t *testing.T) {
		sub, initial, err := s.Watch(ctx, bo, band.ID, WatchEvents, "")
		require.NoError(t, err)
		sub.Close()
		assert.Len(t, initial.Data.([]*models.BandEvent), 1)

		sub, initial, err = s.Watch(ctx, bo, band.ID, WatchMembers, "")
		require.NoError(t, err)
		sub.Close()
		assert.Len(t, initial.Data.([]*models.Member), 2)
	})

	t.Run("Testcase #3: access and input", func(t *testing.T) {
		_, _, err := s.Watch(ctx, cecilia, band.ID, WatchEvents, "")
		assert.ErrorIs(t, err, access.ErrForbidden)
		_, _, err = s.Watch(ctx, bo, band.ID, "todos", "")
		assert.ErrorIs(t, err, ErrInvalid)
		_, _, err = s.Watch(ctx, bo, band.ID, WatchParticipants, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, _, err = s.Watch(ctx, bo, "nope", WatchEvents, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestWatchEndsWhenBandIsDeleted(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)
	event, err := s.CreateEvent(ctx, anna, band.ID, EventInput{Start: "2026-11-02T19:00"})
	require.NoError(t, err)

	events, _, err := s.Watch(ctx, bo, band.ID, WatchEvents, "")
	require.NoError(t, err)
	defer events.Close()
	participants, _, err := s.Watch(ctx, bo, band.ID, WatchParticipants, event.ID)
	require.NoError(t, err)
	defer participants.Close()

	require.NoError(t, s.DeleteBand(ctx, anna, band.ID))

	for _, sub := range []*live.Subscription{events, participants} {
		select {
		case _, ok := <-sub.C():
			assert.False(t, ok, "subscription must be closed")
		case <-time.After(time.Second):
			t.Fatal("subscription still open")
		}
	}
}

func TestWatchSnapshotsAreVersioned(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)

	sub, initial, err := s.Watch(ctx, bo, band.ID, WatchEvents, "")
	require.NoError(t, err)
	defer sub.Close()

	_, err = s.CreateEvent(ctx, anna, band.ID, EventInput{Start: "2026-11-02T19:00"})
	require.NoError(t, err)

	select {
	case snap := <-sub.C():
		assert.Greater(t, snap.Version, initial.Version)
		assert.Len(t, snap.Data.([]*models.BandEvent), 1)
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
	}
}

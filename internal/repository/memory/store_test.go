package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

func seedBand(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Users().Upsert(ctx, &models.User{ID: "anna", DisplayName: "Anna"})
	require.NoError(t, err)
	_, err = s.Bands().Create(ctx, &models.Band{ID: "b1", DisplayName: "Brass"}, &models.Member{UserID: "anna", DisplayName: "Anna", Admin: true})
	require.NoError(t, err)
}

func TestBandLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedBand(t, s)

	u, err := s.Users().GetByID(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, u.Bands)

	settings, err := s.Members().GetSettings(ctx, "b1", "anna")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.True(t, settings.NotifyNewEvent)

	bands, err := s.Bands().ListByUser(ctx, "anna")
	require.NoError(t, err)
	require.Len(t, bands, 1)

	_, err = s.Events().Create(ctx, &models.BandEvent{ID: "e1", BandID: "b1", Start: time.Now()})
	require.NoError(t, err)
	_, err = s.Participants().Upsert(ctx, &models.Participant{BandID: "b1", EventID: "e1", UserID: "anna", Response: models.ResponseYes})
	require.NoError(t, err)

	require.NoError(t, s.Bands().Delete(ctx, "b1"))
	u, _ = s.Users().GetByID(ctx, "anna")
	assert.Empty(t, u.Bands)
	ps, _ := s.Participants().ListByEvent(ctx, "e1")
	assert.Empty(t, ps)
	assert.ErrorIs(t, s.Bands().Delete(ctx, "b1"), repository.ErrNotFound)
}

func TestEventsListAndReminders(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedBand(t, s)

	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	for i, cancelled := range []bool{false, true, false} {
		_, err := s.Events().Create(ctx, &models.BandEvent{
			ID:        string(rune('a' + i)),
			BandID:    "b1",
			Start:     base.Add(time.Duration(2-i) * time.Hour),
			Cancelled: cancelled,
		})
		require.NoError(t, err)
	}

	events, err := s.Events().List(ctx, "b1", repository.EventFilters{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].ID)
	assert.Equal(t, "a", events[1].ID)

	events, _ = s.Events().List(ctx, "b1", repository.EventFilters{IncludeCancelled: true, Limit: 2})
	assert.Len(t, events, 2)

	due, err := s.Events().ListUnreminded(ctx, base, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, due, 2)

	require.NoError(t, s.Events().MarkReminded(ctx, "b1", "a", base))
	due, _ = s.Events().ListUnreminded(ctx, base, base.Add(3*time.Hour))
	require.Len(t, due, 1)
	assert.Equal(t, "c", due[0].ID)

	got, _ := s.Events().GetByID(ctx, "other-band", "a")
	assert.Nil(t, got)
}

func TestJoinApprove(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedBand(t, s)

	err := s.JoinRequests().Approve(ctx, &models.Member{BandID: "b1", UserID: "bo"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.JoinRequests().Upsert(ctx, &models.JoinRequest{BandID: "b1", UserID: "bo", DisplayName: "Bo"})
	require.NoError(t, err)
	require.NoError(t, s.JoinRequests().Approve(ctx, &models.Member{BandID: "b1", UserID: "bo", DisplayName: "Bo"}))

	m, _ := s.Members().Get(ctx, "b1", "bo")
	require.NotNil(t, m)
	reqs, _ := s.JoinRequests().List(ctx, "b1")
	assert.Empty(t, reqs)

	require.NoError(t, s.Members().Remove(ctx, "b1", "bo"))
	m, _ = s.Members().Get(ctx, "b1", "bo")
	assert.Nil(t, m)
}

func TestLastAdmin(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedBand(t, s)

	anna, err := s.Members().Get(ctx, "b1", "anna")
	require.NoError(t, err)
	demoted := *anna
	demoted.Admin = false
	_, err = s.Members().Update(ctx, &demoted)
	assert.ErrorIs(t, err, repository.ErrLastAdmin)
	assert.ErrorIs(t, s.Members().Remove(ctx, "b1", "anna"), repository.ErrLastAdmin)

	_, err = s.JoinRequests().Upsert(ctx, &models.JoinRequest{BandID: "b1", UserID: "bo", DisplayName: "Bo"})
	require.NoError(t, err)
	require.NoError(t, s.JoinRequests().Approve(ctx, &models.Member{BandID: "b1", UserID: "bo", DisplayName: "Bo", Admin: true}))

	// With a second admin either one may go, but not both.
	require.NoError(t, s.Members().Remove(ctx, "b1", "anna"))
	assert.ErrorIs(t, s.Members().Remove(ctx, "b1", "bo"), repository.ErrLastAdmin)
	assert.ErrorIs(t, s.Members().Remove(ctx, "b1", "anna"), repository.ErrNotFound)
}

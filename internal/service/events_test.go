package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

func TestEventInputParse(t *testing.T) {
	tests := []struct {
		name    string
		in      EventInput
		wantErr []string
	}{
		{
			name: "Testcase #1: type defaults to rehearsal",
			in:   EventInput{Start: "2026-11-02T19:00"},
		},
		{
			name:    "Testcase #2: missing start",
			in:      EventInput{Type: "gig"},
			wantErr: []string{"start is required"},
		},
		{
			name:    "Testcase #3: every problem is reported",
			in:      EventInput{Type: "party", Start: "tomorrow", Stop: "2026-11-02T18:00"},
			wantErr: []string{"unknown event type", "start:"},
		},
		{
			name:    "Testcase #4: stop before start",
			in:      EventInput{Start: "2026-11-02T19:00", Stop: "2026-11-02T18:00"},
			wantErr: []string{"stop is before start"},
		},
		{
			name:    "Testcase #5: overlong text fields",
			in:      EventInput{Start: "2026-11-02T19:00", Location: strings.Repeat("å", 201), Description: strings.Repeat("x", 2001)},
			wantErr: []string{"location is longer than 200", "description is longer than 2000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := tt.in.parse(time.UTC)
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				assert.Equal(t, models.EventTypeRehearsal, event.Type)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)

	gig, err := s.CreateEvent(ctx, anna, band.ID, EventInput{Type: "gig", Start: "2026-11-07T20:00", Stop: "2026-11-07T23:00", Location: "Pustervik"})
	require.NoError(t, err)
	rehearsal, err := s.CreateEvent(ctx, anna, band.ID, EventInput{Start: "2026-11-03T19:00"})
	require.NoError(t, err)

	t.Run("Testcase #1: only admins create events", func(t *testing.T) {
		_, err := s.CreateEvent(ctx, bo, band.ID, EventInput{Start: "2026-11-03T19:00"})
		assert.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("Testcase #2: events are ordered by start", func(t *testing.T) {
		events, err := s.ListEvents(ctx, bo, band.ID, repository.EventFilters{})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, rehearsal.ID, events[0].ID)
		assert.Equal(t, gig.ID, events[1].ID)
		assert.Equal(t, "anna", events[1].CreatedBy)
	})

	t.Run("Testcase #3: non-members cannot read events", func(t *testing.T) {
		_, err := s.ListEvents(ctx, cecilia, band.ID, repository.EventFilters{})
		assert.ErrorIs(t, err, access.ErrForbidden)
		_, err = s.GetEvent(ctx, access.Anonymous, band.ID, gig.ID)
		assert.ErrorIs(t, err, access.ErrUnauthenticated)
	})

	t.Run("Testcase #4: cancelled events are hidden unless asked for", func(t *testing.T) {
		got, err := s.CancelEvent(ctx, anna, band.ID, rehearsal.ID, true)
		require.NoError(t, err)
		assert.True(t, got.Cancelled)

		events, err := s.ListEvents(ctx, bo, band.ID, repository.EventFilters{})
		require.NoError(t, err)
		assert.Len(t, events, 1)
		events, err = s.ListEvents(ctx, bo, band.ID, repository.EventFilters{IncludeCancelled: true})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("Testcase #5: moving an event re-arms its reminder", func(t *testing.T) {
		at := testNow
		require.NoError(t, s.Events.MarkReminded(ctx, band.ID, gig.ID, at))

		got, err := s.UpdateEvent(ctx, anna, band.ID, gig.ID, EventInput{Type: "gig", Start: "2026-11-08T20:00", Location: "Nefertiti"})
		require.NoError(t, err)
		assert.Nil(t, got.RemindedAt)
		assert.Nil(t, got.Stop)
		assert.Equal(t, "Nefertiti", got.Location)
	})

	t.Run("Testcase #6: delete", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteEvent(ctx, bo, band.ID, gig.ID), access.ErrForbidden)
		require.NoError(t, s.DeleteEvent(ctx, anna, band.ID, gig.ID))
		_, err := s.GetEvent(ctx, anna, band.ID, gig.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteEvent(ctx, anna, band.ID, gig.ID), ErrNotFound)
	})
}

func TestCreateEventNotifies(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)

	_, err := s.UpdateSettings(ctx, bo, band.ID, "bo", SettingsInput{NotifyNewEvent: true, TelegramChatID: 42})
	require.NoError(t, err)
	_, err = s.UpdateSettings(ctx, anna, band.ID, "anna", SettingsInput{NotifyNewEvent: true, TelegramChatID: 7})
	require.NoError(t, err)

	n := new(mockNotifier)
	n.On("Notify", int64(42), mockContains("new Gig")).Return(nil).Once()
	s.SetNotifier(n)

	_, err = s.CreateEvent(ctx, anna, band.ID, EventInput{Type: "gig", Start: "2026-11-07T20:00"})
	require.NoError(t, err)
	n.AssertExpectations(t)
	n.AssertNotCalled(t, "Notify", int64(7), mockContains("new Gig"))
}

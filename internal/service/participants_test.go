package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

func TestResponses(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)
	event, err := s.CreateEvent(ctx, anna, band.ID, EventInput{Type: "gig", Start: "2026-11-07T20:00"})
	require.NoError(t, err)

	t.Run("Testcase #1: member answers for self", func(t *testing.T) {
		p, err := s.SetResponse(ctx, bo, band.ID, event.ID, "bo", models.ResponseYes, "  with mute  ")
		require.NoError(t, err)
		assert.Equal(t, models.ResponseYes, p.Response)
		assert.Equal(t, "with mute", p.Comment)
	})

	t.Run("Testcase #2: member cannot answer for others", func(t *testing.T) {
		_, err := s.SetResponse(ctx, bo, band.ID, event.ID, "anna", models.ResponseNo, "")
		assert.ErrorIs(t, err, access.ErrForbidden)
		_, err = s.SetResponse(ctx, cecilia, band.ID, event.ID, "cecilia", models.ResponseNo, "")
		assert.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("Testcase #3: admin answers for a member but not a stranger", func(t *testing.T) {
		_, err := s.SetResponse(ctx, anna, band.ID, event.ID, "bo", models.ResponseSub, "found a sub")
		require.NoError(t, err)
		_, err = s.SetResponse(ctx, anna, band.ID, event.ID, "cecilia", models.ResponseYes, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Testcase #4: input is validated", func(t *testing.T) {
		_, err := s.SetResponse(ctx, bo, band.ID, event.ID, "bo", models.Response("perhaps"), "")
		assert.ErrorIs(t, err, ErrInvalid)
		_, err = s.SetResponse(ctx, bo, band.ID, event.ID, "bo", models.ResponseNo, strings.Repeat("x", maxCommentLength+1))
		assert.ErrorIs(t, err, ErrInvalid)
		_, err = s.SetResponse(ctx, bo, band.ID, "nope", "bo", models.ResponseNo, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Testcase #5: summary covers the whole roster", func(t *testing.T) {
		summary, err := s.EventSummary(ctx, bo, band.ID, event.ID)
		require.NoError(t, err)
		require.Len(t, summary.Rows, 2)
		assert.Equal(t, 1, summary.Counts.Sub)
		assert.Equal(t, 1, summary.Counts.Unset)
		assert.Equal(t, 1, summary.Attending)

		participants, err := s.ListParticipants(ctx, bo, band.ID, event.ID)
		require.NoError(t, err)
		assert.Len(t, participants, 1)
	})

	t.Run("Testcase #6: overview carries the caller's answer", func(t *testing.T) {
		overview, err := s.BandOverview(ctx, bo, band.ID, repository.EventFilters{})
		require.NoError(t, err)
		require.Len(t, overview, 1)
		assert.Equal(t, models.ResponseSub, overview[0].MyResponse)
		assert.Equal(t, 1, overview[0].Attending)

		overview, err = s.BandOverview(ctx, anna, band.ID, repository.EventFilters{})
		require.NoError(t, err)
		assert.Equal(t, models.ResponseUnset, overview[0].MyResponse)
	})

	t.Run("Testcase #7: clearing an answer", func(t *testing.T) {
		_, err := s.SetResponse(ctx, bo, band.ID, event.ID, "bo", models.ResponseUnset, "")
		require.NoError(t, err)
		summary, err := s.EventSummary(ctx, anna, band.ID, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Counts.Unset)
	})
}

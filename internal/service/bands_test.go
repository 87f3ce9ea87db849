package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/narvarokollen/narvaro/internal/access"
)

func TestBands(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	band := newBand(t, s)

	t.Run("Testcase #1: creator is the only admin", func(t *testing.T) {
		got, err := s.GetBand(ctx, access.Anonymous, band.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"anna"}, got.ACL.Admins)
		assert.ElementsMatch(t, []string{"anna", "bo"}, got.ACL.Members)
		assert.Equal(t, "Bo", got.Members["bo"])
	})

	t.Run("Testcase #2: empty name is invalid", func(t *testing.T) {
		_, err := s.CreateBand(ctx, anna, BandInput{DisplayName: "  "})
		assert.ErrorIs(t, err, ErrInvalid)
		_, err = s.CreateBand(ctx, access.Anonymous, BandInput{DisplayName: "X"})
		assert.ErrorIs(t, err, access.ErrUnauthenticated)
	})

	t.Run("Testcase #3: members list their bands", func(t *testing.T) {
		bands, err := s.ListMyBands(ctx, bo)
		require.NoError(t, err)
		require.Len(t, bands, 1)
		assert.Equal(t, band.ID, bands[0].ID)

		bands, err = s.ListMyBands(ctx, cecilia)
		require.NoError(t, err)
		assert.Empty(t, bands)
	})

	t.Run("Testcase #4: only admins update", func(t *testing.T) {
		_, err := s.UpdateBand(ctx, bo, band.ID, BandInput{DisplayName: "Bo's band"})
		assert.ErrorIs(t, err, access.ErrForbidden)

		got, err := s.UpdateBand(ctx, anna, band.ID, BandInput{DisplayName: "Storbandet", Description: "Swing"})
		require.NoError(t, err)
		assert.Equal(t, "Storbandet", got.DisplayName)
		assert.Equal(t, "Swing", got.Description)
	})

	t.Run("Testcase #5: missing band", func(t *testing.T) {
		_, err := s.GetBand(ctx, anna, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UpdateBand(ctx, anna, "nope", BandInput{DisplayName: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Testcase #6: delete removes the band from every member", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteBand(ctx, bo, band.ID), access.ErrForbidden)
		require.NoError(t, s.DeleteBand(ctx, anna, band.ID))

		_, err := s.GetBand(ctx, anna, band.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		bands, err := s.ListMyBands(ctx, bo)
		require.NoError(t, err)
		assert.Empty(t, bands)
	})
}

func TestHosts(t *testing.T) {
	ctx := context.Background()

	t.Run("Testcase #1: admin maps a host and it resolves", func(t *testing.T) {
		s := newTestService(t)
		band := newBand(t, s)

		h, err := s.SetHost(ctx, anna, "Narvaro.Example.com:443", band.ID)
		require.NoError(t, err)
		assert.Equal(t, "narvaro.example.com", h.Host)

		id, err := s.ResolveHost(ctx, "narvaro.example.com.")
		require.NoError(t, err)
		assert.Equal(t, band.ID, id)

		_, err = s.ResolveHost(ctx, "other.example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Testcase #2: members cannot map hosts", func(t *testing.T) {
		s := newTestService(t)
		band := newBand(t, s)

		_, err := s.SetHost(ctx, bo, "bo.example.com", band.ID)
		assert.ErrorIs(t, err, access.ErrForbidden)
		_, err = s.SetHost(ctx, anna, " ", band.ID)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("Testcase #3: taking a host from another band needs admin there", func(t *testing.T) {
		s := newTestService(t)
		band := newBand(t, s)
		_, err := s.SetHost(ctx, anna, "shared.example.com", band.ID)
		require.NoError(t, err)

		other, err := s.CreateBand(ctx, bo, BandInput{DisplayName: "Bo's band"})
		require.NoError(t, err)
		_, err = s.SetHost(ctx, bo, "shared.example.com", other.ID)
		assert.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("Testcase #4: cache hit skips the store", func(t *testing.T) {
		c := new(mockHostCache)
		c.On("GetHost", mock.Anything, "cached.example.com").Return("b42", true, nil).Once()
		s := newTestService(t, WithHostCache(c))

		id, err := s.ResolveHost(ctx, "cached.example.com")
		require.NoError(t, err)
		assert.Equal(t, "b42", id)
		c.AssertExpectations(t)
	})

	t.Run("Testcase #5: cache miss falls back and fills the cache", func(t *testing.T) {
		c := new(mockHostCache)
		s := newTestService(t, WithHostCache(c))
		c.On("SetHost", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		band := newBand(t, s)
		_, err := s.SetHost(ctx, anna, "miss.example.com", band.ID)
		require.NoError(t, err)

		c.On("GetHost", mock.Anything, "miss.example.com").Return("", false, errors.New("redis down")).Once()
		id, err := s.ResolveHost(ctx, "miss.example.com")
		require.NoError(t, err)
		assert.Equal(t, band.ID, id)
		c.AssertNumberOfCalls(t, "SetHost", 2)
	})

	t.Run("Testcase #6: deleting a band evicts its hosts", func(t *testing.T) {
		c := new(mockHostCache)
		s := newTestService(t, WithHostCache(c))
		c.On("SetHost", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		band := newBand(t, s)
		_, err := s.SetHost(ctx, anna, "band.example", band.ID)
		require.NoError(t, err)
		_, err = s.SetHost(ctx, anna, "www.band.example", band.ID)
		require.NoError(t, err)

		c.On("DeleteHost", mock.Anything, "band.example").Return(nil).Once()
		c.On("DeleteHost", mock.Anything, "www.band.example").Return(errors.New("redis down")).Once()
		require.NoError(t, s.DeleteBand(ctx, anna, band.ID))
		c.AssertExpectations(t)

		c.On("GetHost", mock.Anything, "band.example").Return("", false, nil).Once()
		_, err = s.ResolveHost(ctx, "band.example")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

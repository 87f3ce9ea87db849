package handlers

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/service"
	"github.com/narvarokollen/narvaro/internal/telegram"
	"github.com/narvarokollen/narvaro/pkg/logger"
)

func TestParseResponseData(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantEvent string
		wantResp  models.Response
		wantErr   bool
	}{
		{"Testcase #1: yes", "e1:yes", "e1", models.ResponseYes, false},
		{"Testcase #2: uuid with sub", "3f2a9c1d-0000-4000-8000-000000000000:sub", "3f2a9c1d-0000-4000-8000-000000000000", models.ResponseSub, false},
		{"Testcase #3: unset is not a button", "e1:", "", "", true},
		{"Testcase #4: unknown answer", "e1:perhaps", "", "", true},
		{"Testcase #5: no event", ":yes", "", "", true},
		{"Testcase #6: garbage", "yes", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, resp, err := parseResponseData(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEvent, event)
			assert.Equal(t, tt.wantResp, resp)
		})
	}
}

func TestResponseKeyboard(t *testing.T) {
	kb := responseKeyboard("3f2a9c1d-0000-4000-8000-000000000000")
	require.Len(t, kb.InlineKeyboard, 2)

	var seen []models.Response
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			require.NotNil(t, b.CallbackData)
			assert.LessOrEqual(t, len(*b.CallbackData), 64)
			prefix, data := telegram.SplitCallbackData(*b.CallbackData)
			assert.Equal(t, ResponseCallbackPrefix, prefix)
			_, r, err := parseResponseData(data)
			require.NoError(t, err)
			seen = append(seen, r)
		}
	}
	assert.ElementsMatch(t, []models.Response{models.ResponseYes, models.ResponseNo, models.ResponseMaybe, models.ResponseSub}, seen)
}

func TestFormatChatEvent(t *testing.T) {
	ce := service.ChatEvent{
		Band:     &models.Band{DisplayName: "Brass_band"},
		Event:    &models.BandEvent{ID: "3f2a9c1d-aaaa", Type: models.EventTypeGig, Location: "Pustervik"},
		Response: models.ResponseMaybe,
	}

	text := formatChatEvent(ce, "Sat 07 Nov 2026 20:00")
	assert.Contains(t, text, `Brass\_band`)
	assert.Contains(t, text, "`3f2a9c1d`")
	assert.Contains(t, text, "Gig @ Pustervik")
	assert.Contains(t, text, "Your answer: 🤔 Maybe")

	ce.Event.Cancelled = true
	assert.True(t, strings.HasPrefix(formatChatEvent(ce, ""), "🚫"))
}

func TestUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		ok   bool
	}{
		{"Testcase #1: not found", fmt.Errorf("event x: %w", service.ErrNotFound), "could not find", true},
		{"Testcase #2: ambiguous", fmt.Errorf("%w: two", service.ErrConflict), "more than one", true},
		{"Testcase #3: invalid", fmt.Errorf("%w: event id too short", service.ErrInvalid), "too short", true},
		{"Testcase #4: forbidden", access.ErrForbidden, "not a member", true},
		{"Testcase #5: unexpected", errors.New("db down"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := userError(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestTexts(t *testing.T) {
	assert.Contains(t, NewStartHandler(logger.Discard()).text(12345), "`12345`")
	assert.Equal(t, helpText, NewHelpHandler(logger.Discard()).text(12345))
	for _, cmd := range []string{"/events", "/yes", "/no", "/maybe", "/sub", "/start"} {
		assert.Contains(t, helpText, cmd)
	}

	ce := &service.ChatEvent{
		Band:     &models.Band{DisplayName: "Brass"},
		Event:    &models.BandEvent{Type: models.EventTypeRehearsal, Cancelled: true},
		Response: models.ResponseYes,
	}
	text := confirmationText(ce)
	assert.Contains(t, text, "Saved *Yes* for Brass: Rehearsal")
	assert.Contains(t, text, "cancelled")
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

// ChatEventsLimit bounds the events listed in a chat across all linked bands.
const ChatEventsLimit = 10

// ChatEvent is an upcoming event as shown to a linked chat.
type ChatEvent struct {
	Band     *models.Band
	Event    *models.BandEvent
	Response models.Response
}

// UpcomingForChat lists the soonest upcoming events of every band the chat is
// linked to, with the linked member's own response, ordered by start.
func (s *Service) UpcomingForChat(ctx context.Context, chatID int64) ([]ChatEvent, error) {
	if chatID == 0 {
		return nil, nil
	}
	links, err := s.Members.ListSettingsByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat links: %w", err)
	}

	now := s.now()
	var out []ChatEvent
	for _, link := range links {
		band, err := s.Bands.GetByID(ctx, link.BandID)
		if err != nil {
			return nil, fmt.Errorf("failed to get band %s: %w", link.BandID, err)
		}
		if band == nil {
			continue
		}
		events, err := s.Events.List(ctx, link.BandID, repository.EventFilters{From: &now, Limit: ChatEventsLimit})
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}
		for _, event := range events {
			ce := ChatEvent{Band: band, Event: event}
			p, err := s.Participants.Get(ctx, event.ID, link.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to get response: %w", err)
			}
			if p != nil {
				ce.Response = p.Response
			}
			out = append(out, ce)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Event.Start.Before(out[j].Event.Start)
	})
	if len(out) > ChatEventsLimit {
		out = out[:ChatEventsLimit]
	}
	return out, nil
}

// RespondFromChat stores a response for the member linked to chatID. The
// event is found by id or by the short id shown in chat messages.
func (s *Service) RespondFromChat(ctx context.Context, chatID int64, eventRef string, response models.Response, comment string) (*ChatEvent, error) {
	eventRef = strings.ToLower(strings.TrimSpace(eventRef))
	if len(eventRef) < 4 {
		return nil, fmt.Errorf("%w: event id too short", ErrInvalid)
	}

	links, err := s.Members.ListSettingsByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat links: %w", err)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("chat %d: %w", chatID, ErrNotFound)
	}

	var match *ChatEvent
	var principal access.Principal
	for _, link := range links {
		events, err := s.Events.List(ctx, link.BandID, repository.EventFilters{IncludeCancelled: true})
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}
		for _, event := range events {
			if !strings.HasPrefix(event.ID, eventRef) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("%w: %q matches more than one event", ErrConflict, eventRef)
			}
			match = &ChatEvent{Event: event}
			principal = access.Principal{UserID: link.UserID}
		}
	}
	if match == nil {
		return nil, fmt.Errorf("event %s: %w", eventRef, ErrNotFound)
	}

	if _, err := s.SetResponse(ctx, principal, match.Event.BandID, match.Event.ID, principal.UserID, response, comment); err != nil {
		return nil, err
	}

	band, err := s.Bands.GetByID(ctx, match.Event.BandID)
	if err != nil {
		return nil, fmt.Errorf("failed to get band: %w", err)
	}
	match.Band = band
	match.Response = response
	return match, nil
}

// FormatWhen renders an event's time for chat messages.
func (s *Service) FormatWhen(event *models.BandEvent) string {
	return s.formatWhen(event)
}

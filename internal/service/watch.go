package service

import (
	"context"
	"fmt"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/live"
)

// Live query kinds a client can watch.
const (
	WatchEvents       = "events"
	WatchMembers      = "members"
	WatchParticipants = "participants"
)

// Watch subscribes the principal to a live query of a band and returns the
// current result as the first snapshot. The caller owns the subscription.
func (s *Service) Watch(ctx context.Context, p access.Principal, bandID, kind, eventID string) (*live.Subscription, live.Snapshot, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, live.Snapshot{}, err
	}

	var topic string
	var build live.Builder
	switch kind {
	case WatchEvents:
		err = access.ReadEvents(p, m)
		topic, build = live.EventsTopic(bandID), s.eventsSnapshot(ctx, bandID)
	case WatchMembers:
		err = access.ReadMembers(p, m)
		topic, build = live.MembersTopic(bandID), s.membersSnapshot(ctx, bandID)
	case WatchParticipants:
		err = access.ReadEvents(p, m)
		if err == nil {
			_, err = s.event(ctx, bandID, eventID)
		}
		topic, build = live.ParticipantsTopic(eventID), s.participantsSnapshot(ctx, bandID, eventID)
	default:
		return nil, live.Snapshot{}, fmt.Errorf("%w: unknown topic %q", ErrInvalid, kind)
	}
	if err != nil {
		return nil, live.Snapshot{}, err
	}

	sub, initial, err := s.hub.Subscribe(topic, build)
	if err != nil {
		return nil, live.Snapshot{}, fmt.Errorf("failed to read %s: %w", kind, err)
	}
	return sub, initial, nil
}

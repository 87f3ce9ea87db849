package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/attendance"
	"github.com/narvarokollen/narvaro/internal/live"
	"github.com/narvarokollen/narvaro/internal/metrics"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

// maxCommentLength bounds free text on responses.
const maxCommentLength = 500

// EventOverview is an event with its counts and the caller's own answer.
type EventOverview struct {
	Event      *models.BandEvent `json:"event"`
	Counts     attendance.Counts `json:"counts"`
	Attending  int               `json:"attending"`
	MyResponse models.Response   `json:"my_response"`
}

// SetResponse stores userID's answer to an event. Members answer for
// themselves, admins for anyone on the roster.
func (s *Service) SetResponse(ctx context.Context, p access.Principal, bandID, eventID, userID string, response models.Response, comment string) (*models.Participant, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.WriteResponse(p, m, userID); err != nil {
		return nil, err
	}

	if !response.Valid() {
		return nil, fmt.Errorf("%w: unknown response %q", ErrInvalid, response)
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment longer than %d characters", ErrInvalid, maxCommentLength)
	}

	if _, err := s.event(ctx, bandID, eventID); err != nil {
		return nil, err
	}

	if userID != p.UserID {
		target, err := s.Members.Get(ctx, bandID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}
		if target == nil {
			return nil, fmt.Errorf("member %s: %w", userID, ErrNotFound)
		}
	}

	participant, err := s.Participants.Upsert(ctx, &models.Participant{
		BandID:   bandID,
		EventID:  eventID,
		UserID:   userID,
		Response: response,
		Comment:  comment,
	})
	if err != nil {
		return nil, storeErr(fmt.Errorf("failed to save response: %w", err))
	}

	metrics.Responses.WithLabelValues(responseLabel(response)).Inc()
	s.logger.WithFields(logrus.Fields{
		"band_id":  bandID,
		"event_id": eventID,
		"user_id":  userID,
		"response": responseLabel(response),
	}).Debug("Response saved")

	s.publishParticipants(ctx, bandID, eventID)
	return participant, nil
}

func responseLabel(r models.Response) string {
	if r == models.ResponseUnset {
		return "unset"
	}
	return string(r)
}

// ListParticipants returns the stored responses of an event.
func (s *Service) ListParticipants(ctx context.Context, p access.Principal, bandID, eventID string) ([]*models.Participant, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.ReadEvents(p, m); err != nil {
		return nil, err
	}
	if _, err := s.event(ctx, bandID, eventID); err != nil {
		return nil, err
	}

	participants, err := s.Participants.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	if participants == nil {
		participants = []*models.Participant{}
	}
	return participants, nil
}

// EventSummary merges the roster with the responses of an event and counts them.
func (s *Service) EventSummary(ctx context.Context, p access.Principal, bandID, eventID string) (*attendance.Summary, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.ReadEvents(p, m); err != nil {
		return nil, err
	}
	if _, err := s.event(ctx, bandID, eventID); err != nil {
		return nil, err
	}
	return s.summary(ctx, bandID, eventID)
}

func (s *Service) summary(ctx context.Context, bandID, eventID string) (*attendance.Summary, error) {
	members, err := s.roster(ctx, bandID)
	if err != nil {
		return nil, err
	}
	participants, err := s.Participants.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	summary := attendance.Summarize(eventID, members, participants)
	return &summary, nil
}

// BandOverview lists events with their counts and the caller's own answers.
func (s *Service) BandOverview(ctx context.Context, p access.Principal, bandID string, filters repository.EventFilters) ([]EventOverview, error) {
	events, err := s.ListEvents(ctx, p, bandID, filters)
	if err != nil {
		return nil, err
	}
	members, err := s.roster(ctx, bandID)
	if err != nil {
		return nil, err
	}

	out := make([]EventOverview, 0, len(events))
	for _, event := range events {
		participants, err := s.Participants.ListByEvent(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list participants of event %s: %w", event.ID, err)
		}
		rows := attendance.Merge(members, participants)
		counts := attendance.Count(rows)
		out = append(out, EventOverview{
			Event:      event,
			Counts:     counts,
			Attending:  counts.Attending(),
			MyResponse: attendance.ResponseOf(rows, p.UserID),
		})
	}
	return out, nil
}

func (s *Service) publishParticipants(ctx context.Context, bandID, eventID string) {
	if err := s.hub.Publish(live.ParticipantsTopic(eventID), s.participantsSnapshot(ctx, bandID, eventID)); err != nil {
		s.logger.WithError(err).WithField("event_id", eventID).Error("failed to build participants snapshot")
	}
}

func (s *Service) participantsSnapshot(ctx context.Context, bandID, eventID string) live.Builder {
	return func() (any, error) {
		return s.summary(ctx, bandID, eventID)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/live"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

const (
	maxLocationLen    = 200
	maxDescriptionLen = 2000
)

// EventInput carries the editable fields of a band event. Start and stop are
// ISO-like strings as entered in the front-end.
type EventInput struct {
	Type        string
	Start       string
	Stop        string
	Location    string
	Description string
}

// parse validates the input and reports every problem at once.
func (in EventInput) parse(loc *time.Location) (*models.BandEvent, error) {
	var result *multierror.Error
	event := &models.BandEvent{
		Type:        models.EventType(strings.ToLower(strings.TrimSpace(in.Type))),
		Location:    strings.TrimSpace(in.Location),
		Description: strings.TrimSpace(in.Description),
	}

	if event.Type == "" {
		event.Type = models.EventTypeRehearsal
	}
	if !event.Type.Valid() {
		result = multierror.Append(result, fmt.Errorf("unknown event type %q", in.Type))
	}

	if strings.TrimSpace(in.Start) == "" {
		result = multierror.Append(result, errors.New("start is required"))
	} else if start, err := models.ParseEventTime(in.Start, loc); err != nil {
		result = multierror.Append(result, fmt.Errorf("start: %w", err))
	} else {
		event.Start = start
	}

	if strings.TrimSpace(in.Stop) != "" {
		stop, err := models.ParseEventTime(in.Stop, loc)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("stop: %w", err))
		} else {
			event.Stop = &stop
		}
	}

	if event.Stop != nil && !event.Start.IsZero() && event.Stop.Before(event.Start) {
		result = multierror.Append(result, errors.New("stop is before start"))
	}

	if n := utf8.RuneCountInString(event.Location); n > maxLocationLen {
		result = multierror.Append(result, fmt.Errorf("location is longer than %d characters", maxLocationLen))
	}
	if n := utf8.RuneCountInString(event.Description); n > maxDescriptionLen {
		result = multierror.Append(result, fmt.Errorf("description is longer than %d characters", maxDescriptionLen))
	}

	if result != nil {
		result.ErrorFormat = listFormat
		return nil, fmt.Errorf("%w: %s", ErrInvalid, result.Error())
	}
	return event, nil
}

func listFormat(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// ListEvents lists a band's events, ordered by start time.
func (s *Service) ListEvents(ctx context.Context, p access.Principal, bandID string, filters repository.EventFilters) ([]*models.BandEvent, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.ReadEvents(p, m); err != nil {
		return nil, err
	}
	return s.listEvents(ctx, bandID, filters)
}

func (s *Service) listEvents(ctx context.Context, bandID string, filters repository.EventFilters) ([]*models.BandEvent, error) {
	events, err := s.Events.List(ctx, bandID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list events of band %s: %w", bandID, err)
	}
	if events == nil {
		events = []*models.BandEvent{}
	}
	return events, nil
}

// GetEvent returns one event of a band.
func (s *Service) GetEvent(ctx context.Context, p access.Principal, bandID, eventID string) (*models.BandEvent, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.ReadEvents(p, m); err != nil {
		return nil, err
	}
	return s.event(ctx, bandID, eventID)
}

func (s *Service) event(ctx context.Context, bandID, eventID string) (*models.BandEvent, error) {
	event, err := s.Events.GetByID(ctx, bandID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return event, nil
}

// CreateEvent schedules a new event and tells members who asked for it.
func (s *Service) CreateEvent(ctx context.Context, p access.Principal, bandID string, in EventInput) (*models.BandEvent, error) {
	band, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.WriteEvent(p, m); err != nil {
		return nil, err
	}

	event, err := in.parse(s.loc)
	if err != nil {
		return nil, err
	}
	event.ID = uuid.NewString()
	event.BandID = bandID
	event.CreatedBy = p.UserID

	event, err = s.Events.Create(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"band_id":  bandID,
		"event_id": event.ID,
		"user_id":  p.UserID,
	}).Info("Band event created")

	s.publishEvents(ctx, bandID)
	s.notifyNewEvent(ctx, band, event, p.UserID)
	return event, nil
}

// UpdateEvent replaces the editable fields of an event. Moving an event
// re-arms its reminder.
func (s *Service) UpdateEvent(ctx context.Context, p access.Principal, bandID, eventID string, in EventInput) (*models.BandEvent, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.WriteEvent(p, m); err != nil {
		return nil, err
	}

	existing, err := s.event(ctx, bandID, eventID)
	if err != nil {
		return nil, err
	}
	parsed, err := in.parse(s.loc)
	if err != nil {
		return nil, err
	}

	if !parsed.Start.Equal(existing.Start) {
		existing.RemindedAt = nil
	}
	existing.Type = parsed.Type
	existing.Start = parsed.Start
	existing.Stop = parsed.Stop
	existing.Location = parsed.Location
	existing.Description = parsed.Description

	return s.saveEvent(ctx, existing)
}

// CancelEvent sets or clears the cancelled flag of an event.
func (s *Service) CancelEvent(ctx context.Context, p access.Principal, bandID, eventID string, cancelled bool) (*models.BandEvent, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.WriteEvent(p, m); err != nil {
		return nil, err
	}

	event, err := s.event(ctx, bandID, eventID)
	if err != nil {
		return nil, err
	}
	event.Cancelled = cancelled
	return s.saveEvent(ctx, event)
}

func (s *Service) saveEvent(ctx context.Context, event *models.BandEvent) (*models.BandEvent, error) {
	updated, err := s.Events.Update(ctx, event)
	if err != nil {
		return nil, storeErr(fmt.Errorf("failed to update event: %w", err))
	}
	s.publishEvents(ctx, event.BandID)
	return updated, nil
}

// DeleteEvent removes an event and its responses.
func (s *Service) DeleteEvent(ctx context.Context, p access.Principal, bandID, eventID string) error {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return err
	}
	if err := access.WriteEvent(p, m); err != nil {
		return err
	}
	if err := s.Events.Delete(ctx, bandID, eventID); err != nil {
		return storeErr(fmt.Errorf("failed to delete event: %w", err))
	}

	s.logger.WithFields(logrus.Fields{
		"band_id":  bandID,
		"event_id": eventID,
		"user_id":  p.UserID,
	}).Info("Band event deleted")

	s.hub.CloseTopic(live.ParticipantsTopic(eventID))
	s.publishEvents(ctx, bandID)
	return nil
}

func (s *Service) publishEvents(ctx context.Context, bandID string) {
	if err := s.hub.Publish(live.EventsTopic(bandID), s.eventsSnapshot(ctx, bandID)); err != nil {
		s.logger.WithError(err).WithField("band_id", bandID).Error("failed to build events snapshot")
	}
}

func (s *Service) eventsSnapshot(ctx context.Context, bandID string) live.Builder {
	return func() (any, error) {
		return s.listEvents(ctx, bandID, repository.EventFilters{IncludeCancelled: true})
	}
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/live"
	"github.com/narvarokollen/narvaro/internal/models"
)

// MemberInput carries the editable fields of a member profile.
type MemberInput struct {
	DisplayName string
	Instrument  string
	Admin       bool
}

// SettingsInput carries the editable notification settings.
type SettingsInput struct {
	NotifyNewEvent bool
	NotifyReminder bool
	TelegramChatID int64
}

// ListMembers returns the roster of a band.
func (s *Service) ListMembers(ctx context.Context, p access.Principal, bandID string) ([]*models.Member, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.ReadMembers(p, m); err != nil {
		return nil, err
	}
	return s.roster(ctx, bandID)
}

func (s *Service) roster(ctx context.Context, bandID string) ([]*models.Member, error) {
	members, err := s.Members.List(ctx, bandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of band %s: %w", bandID, err)
	}
	if members == nil {
		members = []*models.Member{}
	}
	return members, nil
}

// UpdateMember edits a member profile.
func (s *Service) UpdateMember(ctx context.Context, p access.Principal, bandID, userID string, in MemberInput) (*models.Member, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}

	target, err := s.Members.Get(ctx, bandID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if target == nil {
		if !m.Member {
			return nil, access.ErrForbidden
		}
		return nil, fmt.Errorf("member %s: %w", userID, ErrNotFound)
	}

	if err := access.UpdateMember(p, m, userID, target.Admin, in.Admin); err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.DisplayName); name != "" {
		target.DisplayName = name
	}
	target.Instrument = strings.TrimSpace(in.Instrument)
	target.Admin = in.Admin

	updated, err := s.Members.Update(ctx, target)
	if err != nil {
		return nil, storeErr(fmt.Errorf("failed to update member: %w", err))
	}

	s.publishMembers(ctx, bandID)
	return updated, nil
}

// RemoveMember removes a member from the band, or lets a member leave.
// A band always keeps at least one admin.
func (s *Service) RemoveMember(ctx context.Context, p access.Principal, bandID, userID string) error {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return err
	}
	if err := access.RemoveMember(p, m, userID); err != nil {
		return err
	}

	if err := s.Members.Remove(ctx, bandID, userID); err != nil {
		return storeErr(fmt.Errorf("failed to remove member: %w", err))
	}

	s.logger.WithFields(logrus.Fields{
		"band_id": bandID,
		"user_id": userID,
		"by":      p.UserID,
	}).Info("Member removed")

	s.publishMembers(ctx, bandID)
	return nil
}

// GetSettings returns the principal's own notification settings.
func (s *Service) GetSettings(ctx context.Context, p access.Principal, bandID, userID string) (*models.MemberSettings, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.MemberSettings(p, m, userID); err != nil {
		return nil, err
	}

	settings, err := s.Members.GetSettings(ctx, bandID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil {
		settings = models.DefaultSettings(bandID, userID)
	}
	return settings, nil
}

// UpdateSettings replaces the principal's own notification settings.
func (s *Service) UpdateSettings(ctx context.Context, p access.Principal, bandID, userID string, in SettingsInput) (*models.MemberSettings, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.MemberSettings(p, m, userID); err != nil {
		return nil, err
	}
	if in.TelegramChatID < 0 {
		return nil, fmt.Errorf("%w: telegram chat id must be a private chat", ErrInvalid)
	}

	settings := &models.MemberSettings{
		BandID:         bandID,
		UserID:         userID,
		NotifyNewEvent: in.NotifyNewEvent,
		NotifyReminder: in.NotifyReminder,
		TelegramChatID: in.TelegramChatID,
	}
	settings, err = s.Members.UpdateSettings(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}

func (s *Service) publishMembers(ctx context.Context, bandID string) {
	if err := s.hub.Publish(live.MembersTopic(bandID), s.membersSnapshot(ctx, bandID)); err != nil {
		s.logger.WithError(err).WithField("band_id", bandID).Error("failed to build members snapshot")
	}
}

func (s *Service) membersSnapshot(ctx context.Context, bandID string) live.Builder {
	return func() (any, error) {
		return s.roster(ctx, bandID)
	}
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/models"
)

// JoinInput is what an applicant writes when asking to join. UserID is
// empty for the principal's own request; admins may name another user.
type JoinInput struct {
	UserID      string
	DisplayName string
	Message     string
	Approved    bool
}

// Join writes a join request. A request written approved is applied at once.
func (s *Service) Join(ctx context.Context, p access.Principal, bandID string, in JoinInput) (*models.JoinRequest, error) {
	band, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	targetID := strings.TrimSpace(in.UserID)
	if targetID == "" {
		targetID = p.UserID
	}
	if err := access.CreateJoinRequest(p, m, targetID, in.Approved); err != nil {
		return nil, err
	}

	existing, err := s.Members.Get(ctx, bandID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: already a member of %s", ErrConflict, band.DisplayName)
	}

	var user *models.User
	if targetID == p.UserID {
		user, err = s.EnsureUser(ctx, p)
	} else {
		user, err = s.Users.GetByID(ctx, targetID)
		if err == nil && user == nil {
			err = fmt.Errorf("user %s: %w", targetID, ErrNotFound)
		}
	}
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = user.DisplayName
	}
	req, err := s.JoinRequests.Upsert(ctx, &models.JoinRequest{
		BandID:      bandID,
		UserID:      user.ID,
		DisplayName: name,
		Message:     strings.TrimSpace(in.Message),
		Approved:    in.Approved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save join request: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"band_id":  bandID,
		"user_id":  user.ID,
		"by":       p.UserID,
		"approved": req.Approved,
	}).Info("Join request written")

	if err := s.onJoinRequestWritten(ctx, req); err != nil {
		return nil, err
	}
	if !req.Approved {
		s.notifyJoinRequest(ctx, band, req)
	}
	return req, nil
}

// ListJoinRequests returns the pending requests of a band.
func (s *Service) ListJoinRequests(ctx context.Context, p access.Principal, bandID string) ([]*models.JoinRequest, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.ReadJoinRequests(p, m); err != nil {
		return nil, err
	}

	requests, err := s.JoinRequests.List(ctx, bandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	if requests == nil {
		requests = []*models.JoinRequest{}
	}
	return requests, nil
}

// ApproveJoinRequest marks a request approved, which admits the requester.
func (s *Service) ApproveJoinRequest(ctx context.Context, p access.Principal, bandID, userID string) (*models.Member, error) {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.ApproveJoinRequest(p, m, userID); err != nil {
		return nil, err
	}

	req, err := s.JoinRequests.Get(ctx, bandID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("join request %s: %w", userID, ErrNotFound)
	}

	req.Approved = true
	if _, err := s.JoinRequests.Upsert(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to approve join request: %w", err)
	}
	if err := s.onJoinRequestWritten(ctx, req); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"band_id": bandID,
		"user_id": userID,
		"by":      p.UserID,
	}).Info("Join request approved")

	member, err := s.Members.Get(ctx, bandID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// RejectJoinRequest deletes a request. Admins reject, requesters withdraw.
func (s *Service) RejectJoinRequest(ctx context.Context, p access.Principal, bandID, userID string) error {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return err
	}
	if err := access.DeleteJoinRequest(p, m, userID); err != nil {
		return err
	}
	if err := s.JoinRequests.Delete(ctx, bandID, userID); err != nil {
		return storeErr(fmt.Errorf("failed to delete join request: %w", err))
	}

	s.logger.WithFields(logrus.Fields{
		"band_id": bandID,
		"user_id": userID,
		"by":      p.UserID,
	}).Info("Join request removed")
	return nil
}

// onJoinRequestWritten runs after every join request write. An approved
// request is turned into membership: the requester enters the band ACL and
// gets the band in their band list, and the request is consumed.
func (s *Service) onJoinRequestWritten(ctx context.Context, req *models.JoinRequest) error {
	if !req.Approved {
		return nil
	}

	member := &models.Member{
		BandID:      req.BandID,
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
	}
	if err := s.JoinRequests.Approve(ctx, member); err != nil {
		return storeErr(fmt.Errorf("failed to apply join request: %w", err))
	}

	s.publishMembers(ctx, req.BandID)
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/live"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

// BandInput carries the editable fields of a band document.
type BandInput struct {
	DisplayName string
	Description string
}

func (in BandInput) validate() error {
	if strings.TrimSpace(in.DisplayName) == "" {
		return fmt.Errorf("%w: display name is required", ErrInvalid)
	}
	return nil
}

// CreateBand starts a band with the principal as its first admin.
func (s *Service) CreateBand(ctx context.Context, p access.Principal, in BandInput) (*models.Band, error) {
	if err := access.CreateBand(p); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	user, err := s.EnsureUser(ctx, p)
	if err != nil {
		return nil, err
	}

	band := &models.Band{
		ID:          uuid.NewString(),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Description: strings.TrimSpace(in.Description),
	}
	creator := &models.Member{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Admin:       true,
	}

	band, err = s.Bands.Create(ctx, band, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to create band: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"band_id": band.ID,
		"user_id": user.ID,
	}).Info("Band created")

	return s.decorateBand(ctx, band)
}

// GetBand returns a band document with its ACL and member map. Anyone may
// read it.
func (s *Service) GetBand(ctx context.Context, p access.Principal, bandID string) (*models.Band, error) {
	if err := access.ReadBand(p); err != nil {
		return nil, err
	}
	band, err := s.Bands.GetByID(ctx, bandID)
	if err != nil {
		return nil, fmt.Errorf("failed to get band %s: %w", bandID, err)
	}
	if band == nil {
		return nil, fmt.Errorf("band %s: %w", bandID, ErrNotFound)
	}
	return s.decorateBand(ctx, band)
}

// decorateBand fills the ACL and the member map from the roster.
func (s *Service) decorateBand(ctx context.Context, band *models.Band) (*models.Band, error) {
	members, err := s.Members.List(ctx, band.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of band %s: %w", band.ID, err)
	}
	band.ACL = models.ACLFromMembers(members)
	band.Members = make(map[string]string, len(members))
	for _, m := range members {
		band.Members[m.UserID] = m.DisplayName
	}
	return band, nil
}

// ListMyBands lists the bands the principal belongs to.
func (s *Service) ListMyBands(ctx context.Context, p access.Principal) ([]*models.Band, error) {
	if err := access.ListBands(p, p.UserID); err != nil {
		return nil, err
	}
	bands, err := s.Bands.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bands: %w", err)
	}
	if bands == nil {
		bands = []*models.Band{}
	}
	return bands, nil
}

// UpdateBand changes a band's name and description.
func (s *Service) UpdateBand(ctx context.Context, p access.Principal, bandID string, in BandInput) (*models.Band, error) {
	band, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.WriteBand(p, m); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	band.DisplayName = strings.TrimSpace(in.DisplayName)
	band.Description = strings.TrimSpace(in.Description)

	band, err = s.Bands.Update(ctx, band)
	if err != nil {
		return nil, storeErr(fmt.Errorf("failed to update band: %w", err))
	}
	return s.decorateBand(ctx, band)
}

// DeleteBand removes a band and everything under it.
func (s *Service) DeleteBand(ctx context.Context, p access.Principal, bandID string) error {
	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return err
	}
	if err := access.WriteBand(p, m); err != nil {
		return err
	}

	hosts, err := s.Hosts.ListByBand(ctx, bandID)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}
	events, err := s.listEvents(ctx, bandID, repository.EventFilters{IncludeCancelled: true})
	if err != nil {
		return err
	}

	if err := s.Bands.Delete(ctx, bandID); err != nil {
		return storeErr(fmt.Errorf("failed to delete band: %w", err))
	}

	for _, h := range hosts {
		if err := s.hostCache.DeleteHost(ctx, h.Host); err != nil {
			s.logger.WithError(err).WithField("host", h.Host).Warn("host cache delete failed")
		}
	}

	// Live queries of the band have nothing left to show.
	s.hub.CloseTopic(live.EventsTopic(bandID))
	s.hub.CloseTopic(live.MembersTopic(bandID))
	for _, event := range events {
		s.hub.CloseTopic(live.ParticipantsTopic(event.ID))
	}

	s.logger.WithFields(logrus.Fields{"band_id": bandID, "user_id": p.UserID}).Info("Band deleted")
	return nil
}

// ResolveHost maps a custom domain to its band id.
func (s *Service) ResolveHost(ctx context.Context, host string) (string, error) {
	host = normalizeHost(host)

	if bandID, found, err := s.hostCache.GetHost(ctx, host); err != nil {
		s.logger.WithError(err).WithField("host", host).Warn("host cache lookup failed")
	} else if found {
		return bandID, nil
	}

	h, err := s.Hosts.Get(ctx, host)
	if err != nil {
		return "", fmt.Errorf("failed to get host %s: %w", host, err)
	}
	if h == nil {
		return "", fmt.Errorf("host %s: %w", host, ErrNotFound)
	}

	if err := s.hostCache.SetHost(ctx, host, h.BandID); err != nil {
		s.logger.WithError(err).WithField("host", host).Warn("host cache store failed")
	}
	return h.BandID, nil
}

// SetHost points a custom domain at a band. Only admins of that band may do so.
func (s *Service) SetHost(ctx context.Context, p access.Principal, host, bandID string) (*models.Host, error) {
	host = normalizeHost(host)
	if host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalid)
	}

	_, m, err := s.bandAccess(ctx, p, bandID)
	if err != nil {
		return nil, err
	}
	if err := access.WriteBand(p, m); err != nil {
		return nil, err
	}

	// Taking over a host from another band needs admin rights there too.
	existing, err := s.Hosts.Get(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to get host %s: %w", host, err)
	}
	if existing != nil && existing.BandID != bandID {
		other, err := s.membership(ctx, p, existing.BandID)
		if err != nil {
			return nil, err
		}
		if err := access.WriteBand(p, other); err != nil {
			return nil, err
		}
	}

	h := &models.Host{Host: host, BandID: bandID}
	if err := s.Hosts.Set(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to set host: %w", err)
	}
	if err := s.hostCache.SetHost(ctx, host, bandID); err != nil {
		s.logger.WithError(err).WithField("host", host).Warn("host cache store failed")
	}
	return h, nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return strings.TrimSuffix(host, ".")
}

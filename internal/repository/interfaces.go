package repository

import (
	"context"
	"errors"
	"time"

	"github.com/narvarokollen/narvaro/internal/models"
)

// Lookups return (nil, nil) when the document does not exist. Writes that
// target a missing document return an error wrapping ErrNotFound.
var ErrNotFound = errors.New("not found")

// ErrLastAdmin is returned by member writes that would leave a band without
// an admin. The check and the write are atomic.
var ErrLastAdmin = errors.New("band needs at least one admin")

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// BandRepository defines the interface for band document operations
type BandRepository interface {
	// Create stores the band together with its first (admin) member.
	Create(ctx context.Context, band *models.Band, creator *models.Member) (*models.Band, error)
	GetByID(ctx context.Context, id string) (*models.Band, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Band, error)
	Update(ctx context.Context, band *models.Band) (*models.Band, error)
	Delete(ctx context.Context, id string) error
}

// MemberRepository defines the interface for band roster operations
type MemberRepository interface {
	List(ctx context.Context, bandID string) ([]*models.Member, error)
	Get(ctx context.Context, bandID, userID string) (*models.Member, error)
	// Update fails with ErrLastAdmin when it demotes the band's only admin.
	Update(ctx context.Context, member *models.Member) (*models.Member, error)
	// Remove deletes the member, its settings and the band from the user's
	// list. It fails with ErrLastAdmin for the band's only admin.
	Remove(ctx context.Context, bandID, userID string) error
	GetSettings(ctx context.Context, bandID, userID string) (*models.MemberSettings, error)
	UpdateSettings(ctx context.Context, settings *models.MemberSettings) (*models.MemberSettings, error)
	ListSettings(ctx context.Context, bandID string) ([]*models.MemberSettings, error)
	ListSettingsByChat(ctx context.Context, chatID int64) ([]*models.MemberSettings, error)
}

// EventRepository defines the interface for band event operations
type EventRepository interface {
	Create(ctx context.Context, event *models.BandEvent) (*models.BandEvent, error)
	GetByID(ctx context.Context, bandID, id string) (*models.BandEvent, error)
	List(ctx context.Context, bandID string, filters EventFilters) ([]*models.BandEvent, error)
	Update(ctx context.Context, event *models.BandEvent) (*models.BandEvent, error)
	Delete(ctx context.Context, bandID, id string) error
	// ListUnreminded returns non-cancelled events starting in [from, to)
	// that have not been reminded about yet.
	ListUnreminded(ctx context.Context, from, to time.Time) ([]*models.BandEvent, error)
	MarkReminded(ctx context.Context, bandID, id string, at time.Time) error
}

// ParticipantRepository defines the interface for attendance responses
type ParticipantRepository interface {
	Upsert(ctx context.Context, participant *models.Participant) (*models.Participant, error)
	Get(ctx context.Context, eventID, userID string) (*models.Participant, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.Participant, error)
}

// JoinRequestRepository defines the interface for pending join requests
type JoinRequestRepository interface {
	Upsert(ctx context.Context, request *models.JoinRequest) (*models.JoinRequest, error)
	Get(ctx context.Context, bandID, userID string) (*models.JoinRequest, error)
	List(ctx context.Context, bandID string) ([]*models.JoinRequest, error)
	Delete(ctx context.Context, bandID, userID string) error
	// Approve adds member to the band roster, appends the band to the
	// user's band list, gives the member default settings and deletes
	// the request, all or nothing.
	Approve(ctx context.Context, member *models.Member) error
}

// HostRepository defines the interface for custom domain mappings
type HostRepository interface {
	Get(ctx context.Context, host string) (*models.Host, error)
	Set(ctx context.Context, host *models.Host) error
	ListByBand(ctx context.Context, bandID string) ([]*models.Host, error)
}

// EventFilters represents filters for querying band events
type EventFilters struct {
	From             *time.Time
	To               *time.Time
	IncludeCancelled bool
	Limit            int
}

// Match reports whether event passes the filters. Used by stores that
// filter in memory.
func (f EventFilters) Match(event *models.BandEvent) bool {
	if !f.IncludeCancelled && event.Cancelled {
		return false
	}
	if f.From != nil && event.Start.Before(*f.From) {
		return false
	}
	if f.To != nil && event.Start.After(*f.To) {
		return false
	}
	return true
}

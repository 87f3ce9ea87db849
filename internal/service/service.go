package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/cache"
	"github.com/narvarokollen/narvaro/internal/live"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

var (
	// ErrNotFound is returned when a band, member, event or request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write contradicts the current state.
	ErrConflict = errors.New("conflict")
	// ErrInvalid is returned when input fails validation.
	ErrInvalid = errors.New("invalid input")
)

// Notifier delivers a text message to a chat.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// Repositories groups the storage the service works on.
type Repositories struct {
	Users        repository.UserRepository
	Bands        repository.BandRepository
	Members      repository.MemberRepository
	Events       repository.EventRepository
	Participants repository.ParticipantRepository
	JoinRequests repository.JoinRequestRepository
	Hosts        repository.HostRepository
}

// Service is the data-access layer between the transports (HTTP, Telegram)
// and storage. It applies the access rules, converts documents into view
// models and publishes live snapshots after every write.
type Service struct {
	logger       *logrus.Logger
	Users        repository.UserRepository
	Bands        repository.BandRepository
	Members      repository.MemberRepository
	Events       repository.EventRepository
	Participants repository.ParticipantRepository
	JoinRequests repository.JoinRequestRepository
	Hosts        repository.HostRepository

	hub       *live.Hub
	hostCache cache.HostCache
	notifier  Notifier
	loc       *time.Location
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithHostCache puts a cache in front of host lookups.
func WithHostCache(c cache.HostCache) Option {
	return func(s *Service) { s.hostCache = c }
}

// WithLocation sets the zone event times without offset are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger, repos Repositories, hub *live.Hub, opts ...Option) *Service {
	s := &Service{
		logger:       logger,
		Users:        repos.Users,
		Bands:        repos.Bands,
		Members:      repos.Members,
		Events:       repos.Events,
		Participants: repos.Participants,
		JoinRequests: repos.JoinRequests,
		Hosts:        repos.Hosts,
		hub:          hub,
		hostCache:    cache.Nop{},
		loc:          time.Local,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotifier wires the chat transport used for notifications. It must be
// called before the scheduler starts.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Location returns the zone event times without offset are read in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// EnsureUser stores the profile of an authenticated user, creating it on
// first sight and refreshing name and email afterwards.
func (s *Service) EnsureUser(ctx context.Context, p access.Principal) (*models.User, error) {
	if !p.Authenticated() {
		return nil, access.ErrUnauthenticated
	}

	existing, err := s.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user %s: %w", p.UserID, err)
	}

	name := strings.TrimSpace(p.Name)
	email := strings.TrimSpace(p.Email)
	if existing != nil {
		if name == "" {
			name = existing.DisplayName
		}
		if email == "" {
			email = existing.Email
		}
		if existing.DisplayName == name && existing.Email == email {
			return existing, nil
		}
	}

	user, err := s.Users.Upsert(ctx, &models.User{ID: p.UserID, DisplayName: name, Email: email})
	if err != nil {
		return nil, fmt.Errorf("failed to save user %s: %w", p.UserID, err)
	}

	if existing == nil {
		s.logger.WithField("user_id", p.UserID).Info("Created new user")
	}
	return user, nil
}

// GetUser returns the principal's own profile.
func (s *Service) GetUser(ctx context.Context, p access.Principal) (*models.User, error) {
	if !p.Authenticated() {
		return nil, access.ErrUnauthenticated
	}
	user, err := s.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", p.UserID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", p.UserID, ErrNotFound)
	}
	return user, nil
}

// bandAccess loads the band and the principal's standing in it.
func (s *Service) bandAccess(ctx context.Context, p access.Principal, bandID string) (*models.Band, access.Membership, error) {
	band, err := s.Bands.GetByID(ctx, bandID)
	if err != nil {
		return nil, access.Membership{}, fmt.Errorf("failed to get band %s: %w", bandID, err)
	}
	if band == nil {
		return nil, access.Membership{}, fmt.Errorf("band %s: %w", bandID, ErrNotFound)
	}

	m, err := s.membership(ctx, p, bandID)
	if err != nil {
		return nil, access.Membership{}, err
	}
	return band, m, nil
}

func (s *Service) membership(ctx context.Context, p access.Principal, bandID string) (access.Membership, error) {
	if !p.Authenticated() {
		return access.Membership{}, nil
	}
	member, err := s.Members.Get(ctx, bandID, p.UserID)
	if err != nil {
		return access.Membership{}, fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil {
		return access.Membership{}, nil
	}
	return access.Membership{Member: true, Admin: member.Admin}, nil
}

// storeErr translates repository sentinel errors into service ones.
func storeErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repository.ErrLastAdmin):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

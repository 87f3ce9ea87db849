// Package memory implements the repository interfaces on in-process maps.
// It backs the test suites and the DATABASE_URL=memory development mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

type key struct{ a, b string }

// Store holds every document kind behind one lock.
type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	users        map[string]models.User
	userBands    map[string][]string
	bands        map[string]models.Band
	members      map[key]models.Member
	settings     map[key]models.MemberSettings
	events       map[string]models.BandEvent
	participants map[key]models.Participant
	joins        map[key]models.JoinRequest
	hosts        map[string]models.Host
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:          time.Now,
		users:        make(map[string]models.User),
		userBands:    make(map[string][]string),
		bands:        make(map[string]models.Band),
		members:      make(map[key]models.Member),
		settings:     make(map[key]models.MemberSettings),
		events:       make(map[string]models.BandEvent),
		participants: make(map[key]models.Participant),
		joins:        make(map[key]models.JoinRequest),
		hosts:        make(map[string]models.Host),
	}
}

// SetClock replaces the clock used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) Users() repository.UserRepository               { return userRepo{s} }
func (s *Store) Bands() repository.BandRepository               { return bandRepo{s} }
func (s *Store) Members() repository.MemberRepository           { return memberRepo{s} }
func (s *Store) Events() repository.EventRepository             { return eventRepo{s} }
func (s *Store) Participants() repository.ParticipantRepository { return participantRepo{s} }
func (s *Store) JoinRequests() repository.JoinRequestRepository { return joinRepo{s} }
func (s *Store) Hosts() repository.HostRepository               { return hostRepo{s} }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
}

// addMember must be called with the lock held.
func (s *Store) addMember(m *models.Member, now time.Time) {
	k := key{m.BandID, m.UserID}
	if _, ok := s.members[k]; ok {
		return
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	s.members[k] = *m
	if _, ok := s.settings[k]; !ok {
		s.settings[k] = *models.DefaultSettings(m.BandID, m.UserID)
	}
	for _, id := range s.userBands[m.UserID] {
		if id == m.BandID {
			return
		}
	}
	s.userBands[m.UserID] = append(s.userBands[m.UserID], m.BandID)
}

// admins must be called with the lock held.
func (s *Store) admins(bandID string) int {
	n := 0
	for k, m := range s.members {
		if k.a == bandID && m.Admin {
			n++
		}
	}
	return n
}

func (s *Store) removeBandFromUser(userID, bandID string) {
	ids := s.userBands[userID]
	out := ids[:0]
	for _, id := range ids {
		if id != bandID {
			out = append(out, id)
		}
	}
	s.userBands[userID] = out
}

// users

type userRepo struct{ s *Store }

func (r userRepo) Upsert(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if existing, ok := r.s.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	stored := *user
	stored.Bands = nil
	r.s.users[user.ID] = stored
	user.Bands = append([]string(nil), r.s.userBands[user.ID]...)
	return user, nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	u.Bands = append([]string{}, r.s.userBands[id]...)
	return &u, nil
}

// bands

type bandRepo struct{ s *Store }

func (r bandRepo) Create(_ context.Context, band *models.Band, creator *models.Member) (*models.Band, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bands[band.ID]; ok {
		return nil, fmt.Errorf("failed to create band: duplicate id %s", band.ID)
	}
	now := r.s.now()
	band.CreatedAt = now
	band.UpdatedAt = now
	r.s.bands[band.ID] = *band

	creator.BandID = band.ID
	r.s.addMember(creator, now)
	return band, nil
}

func (r bandRepo) GetByID(_ context.Context, id string) (*models.Band, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bands[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r bandRepo) ListByUser(_ context.Context, userID string) ([]*models.Band, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Band
	for _, id := range r.s.userBands[userID] {
		if b, ok := r.s.bands[id]; ok {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (r bandRepo) Update(_ context.Context, band *models.Band) (*models.Band, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.bands[band.ID]
	if !ok {
		return nil, notFound("band", band.ID)
	}
	existing.DisplayName = band.DisplayName
	existing.Description = band.Description
	existing.UpdatedAt = r.s.now()
	r.s.bands[band.ID] = existing
	band.CreatedAt = existing.CreatedAt
	band.UpdatedAt = existing.UpdatedAt
	return band, nil
}

func (r bandRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bands[id]; !ok {
		return notFound("band", id)
	}
	delete(r.s.bands, id)
	for k := range r.s.members {
		if k.a == id {
			delete(r.s.members, k)
			delete(r.s.settings, k)
			r.s.removeBandFromUser(k.b, id)
		}
	}
	for eid, e := range r.s.events {
		if e.BandID == id {
			delete(r.s.events, eid)
		}
	}
	for k, p := range r.s.participants {
		if p.BandID == id {
			delete(r.s.participants, k)
		}
	}
	for k := range r.s.joins {
		if k.a == id {
			delete(r.s.joins, k)
		}
	}
	for h, m := range r.s.hosts {
		if m.BandID == id {
			delete(r.s.hosts, h)
		}
	}
	return nil
}

// members

type memberRepo struct{ s *Store }

func (r memberRepo) List(_ context.Context, bandID string) ([]*models.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Member
	for k, m := range r.s.members {
		if k.a == bandID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (r memberRepo) Get(_ context.Context, bandID, userID string) (*models.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.members[key{bandID, userID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r memberRepo) Update(_ context.Context, member *models.Member) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := key{member.BandID, member.UserID}
	existing, ok := r.s.members[k]
	if !ok {
		return nil, notFound("member", member.UserID)
	}
	if existing.Admin && !member.Admin && r.s.admins(member.BandID) == 1 {
		return nil, repository.ErrLastAdmin
	}
	member.CreatedAt = existing.CreatedAt
	member.UpdatedAt = r.s.now()
	r.s.members[k] = *member
	return member, nil
}

func (r memberRepo) Remove(_ context.Context, bandID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := key{bandID, userID}
	existing, ok := r.s.members[k]
	if !ok {
		return notFound("member", userID)
	}
	if existing.Admin && r.s.admins(bandID) == 1 {
		return repository.ErrLastAdmin
	}
	delete(r.s.members, k)
	delete(r.s.settings, k)
	r.s.removeBandFromUser(userID, bandID)
	return nil
}

func (r memberRepo) GetSettings(_ context.Context, bandID, userID string) (*models.MemberSettings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.settings[key{bandID, userID}]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r memberRepo) UpdateSettings(_ context.Context, settings *models.MemberSettings) (*models.MemberSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.settings[key{settings.BandID, settings.UserID}] = *settings
	return settings, nil
}

func (r memberRepo) ListSettings(_ context.Context, bandID string) ([]*models.MemberSettings, error) {
	return r.filterSettings(func(st models.MemberSettings) bool { return st.BandID == bandID }), nil
}

func (r memberRepo) ListSettingsByChat(_ context.Context, chatID int64) ([]*models.MemberSettings, error) {
	return r.filterSettings(func(st models.MemberSettings) bool { return st.TelegramChatID == chatID }), nil
}

func (r memberRepo) filterSettings(keep func(models.MemberSettings) bool) []*models.MemberSettings {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.MemberSettings
	for _, st := range r.s.settings {
		if keep(st) {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BandID != out[j].BandID {
			return out[i].BandID < out[j].BandID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// events

type eventRepo struct{ s *Store }

func (r eventRepo) Create(_ context.Context, event *models.BandEvent) (*models.BandEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bands[event.BandID]; !ok {
		return nil, fmt.Errorf("failed to create band event: %w", notFound("band", event.BandID))
	}
	now := r.s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	r.s.events[event.ID] = *event
	return event, nil
}

func (r eventRepo) GetByID(_ context.Context, bandID, id string) (*models.BandEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok || e.BandID != bandID {
		return nil, nil
	}
	return &e, nil
}

func (r eventRepo) List(_ context.Context, bandID string, filters repository.EventFilters) ([]*models.BandEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.BandEvent
	for _, e := range r.s.events {
		if e.BandID == bandID && filters.Match(&e) {
			e := e
			out = append(out, &e)
		}
	}
	sortEvents(out)
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func sortEvents(events []*models.BandEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}

func (r eventRepo) Update(_ context.Context, event *models.BandEvent) (*models.BandEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.events[event.ID]
	if !ok || existing.BandID != event.BandID {
		return nil, notFound("band event", event.ID)
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = r.s.now()
	r.s.events[event.ID] = *event
	return event, nil
}

func (r eventRepo) Delete(_ context.Context, bandID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok || e.BandID != bandID {
		return notFound("band event", id)
	}
	delete(r.s.events, id)
	for k := range r.s.participants {
		if k.a == id {
			delete(r.s.participants, k)
		}
	}
	return nil
}

func (r eventRepo) ListUnreminded(_ context.Context, from, to time.Time) ([]*models.BandEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.BandEvent
	for _, e := range r.s.events {
		if e.RemindedAt != nil || e.Cancelled {
			continue
		}
		if e.Start.Before(from) || !e.Start.Before(to) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sortEvents(out)
	return out, nil
}

func (r eventRepo) MarkReminded(_ context.Context, bandID, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok || e.BandID != bandID {
		return notFound("band event", id)
	}
	e.RemindedAt = &at
	r.s.events[id] = e
	return nil
}

// participants

type participantRepo struct{ s *Store }

func (r participantRepo) Upsert(_ context.Context, p *models.Participant) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[p.EventID]; !ok {
		return nil, fmt.Errorf("failed to save participant: %w", notFound("band event", p.EventID))
	}
	p.UpdatedAt = r.s.now()
	r.s.participants[key{p.EventID, p.UserID}] = *p
	return p, nil
}

func (r participantRepo) Get(_ context.Context, eventID, userID string) (*models.Participant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.participants[key{eventID, userID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r participantRepo) ListByEvent(_ context.Context, eventID string) ([]*models.Participant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Participant
	for k, p := range r.s.participants {
		if k.a == eventID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// join requests

type joinRepo struct{ s *Store }

func (r joinRepo) Upsert(_ context.Context, req *models.JoinRequest) (*models.JoinRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := key{req.BandID, req.UserID}
	if existing, ok := r.s.joins[k]; ok {
		req.CreatedAt = existing.CreatedAt
	} else {
		req.CreatedAt = r.s.now()
	}
	r.s.joins[k] = *req
	return req, nil
}

func (r joinRepo) Get(_ context.Context, bandID, userID string) (*models.JoinRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.joins[key{bandID, userID}]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r joinRepo) List(_ context.Context, bandID string) ([]*models.JoinRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.JoinRequest
	for k, req := range r.s.joins {
		if k.a == bandID {
			req := req
			out = append(out, &req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r joinRepo) Delete(_ context.Context, bandID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := key{bandID, userID}
	if _, ok := r.s.joins[k]; !ok {
		return notFound("join request", userID)
	}
	delete(r.s.joins, k)
	return nil
}

func (r joinRepo) Approve(_ context.Context, member *models.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := key{member.BandID, member.UserID}
	if _, ok := r.s.joins[k]; !ok {
		return notFound("join request", member.UserID)
	}
	delete(r.s.joins, k)
	r.s.addMember(member, r.s.now())
	return nil
}

// hosts

type hostRepo struct{ s *Store }

func (r hostRepo) Get(_ context.Context, host string) (*models.Host, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	h, ok := r.s.hosts[host]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r hostRepo) ListByBand(_ context.Context, bandID string) ([]*models.Host, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var hosts []*models.Host
	for _, h := range r.s.hosts {
		if h.BandID == bandID {
			h := h
			hosts = append(hosts, &h)
		}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Host < hosts[j].Host })
	return hosts, nil
}

func (r hostRepo) Set(_ context.Context, h *models.Host) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.hosts[h.Host] = *h
	return nil
}

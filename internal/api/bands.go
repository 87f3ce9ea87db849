package api

import (
	"net/http"

	"github.com/narvarokollen/narvaro/internal/service"
)

// ---------------------------------------------------------------------------
// Bands
// ---------------------------------------------------------------------------

type bandRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

func (req bandRequest) input() service.BandInput {
	return service.BandInput{DisplayName: req.DisplayName, Description: req.Description}
}

func (s *Server) handleListBands(w http.ResponseWriter, r *http.Request) {
	bands, err := s.svc.ListMyBands(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, err, "list bands")
		return
	}
	s.respondJSON(w, http.StatusOK, bands)
}

func (s *Server) handleCreateBand(w http.ResponseWriter, r *http.Request) {
	var req bandRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	band, err := s.svc.CreateBand(r.Context(), principalFrom(r.Context()), req.input())
	if err != nil {
		s.respondServiceError(w, err, "create band")
		return
	}
	s.respondJSON(w, http.StatusCreated, band)
}

func (s *Server) handleGetBand(w http.ResponseWriter, r *http.Request) {
	band, err := s.svc.GetBand(r.Context(), principalFrom(r.Context()), r.PathValue("band"))
	if err != nil {
		s.respondServiceError(w, err, "get band")
		return
	}
	s.respondJSON(w, http.StatusOK, band)
}

func (s *Server) handleUpdateBand(w http.ResponseWriter, r *http.Request) {
	var req bandRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	band, err := s.svc.UpdateBand(r.Context(), principalFrom(r.Context()), r.PathValue("band"), req.input())
	if err != nil {
		s.respondServiceError(w, err, "update band")
		return
	}
	s.respondJSON(w, http.StatusOK, band)
}

func (s *Server) handleDeleteBand(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBand(r.Context(), principalFrom(r.Context()), r.PathValue("band")); err != nil {
		s.respondServiceError(w, err, "delete band")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Hosts
// ---------------------------------------------------------------------------

type hostRequest struct {
	BandID string `json:"band_id" validate:"required"`
}

func (s *Server) handleResolveHost(w http.ResponseWriter, r *http.Request) {
	host := r.PathValue("host")
	bandID, err := s.svc.ResolveHost(r.Context(), host)
	if err != nil {
		s.respondServiceError(w, err, "resolve host")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"host": host, "band_id": bandID})
}

func (s *Server) handleSetHost(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	h, err := s.svc.SetHost(r.Context(), principalFrom(r.Context()), r.PathValue("host"), req.BandID)
	if err != nil {
		s.respondServiceError(w, err, "set host")
		return
	}
	s.respondJSON(w, http.StatusOK, h)
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

type memberRequest struct {
	DisplayName string `json:"display_name" validate:"max=100"`
	Instrument  string `json:"instrument" validate:"max=100"`
	Admin       bool   `json:"admin"`
}

type settingsRequest struct {
	NotifyNewEvent bool  `json:"notify_new_event"`
	NotifyReminder bool  `json:"notify_reminder"`
	TelegramChatID int64 `json:"telegram_chat_id" validate:"gte=0"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.ListMembers(r.Context(), principalFrom(r.Context()), r.PathValue("band"))
	if err != nil {
		s.respondServiceError(w, err, "list members")
		return
	}
	s.respondJSON(w, http.StatusOK, members)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	member, err := s.svc.UpdateMember(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("user"), service.MemberInput{
		DisplayName: req.DisplayName,
		Instrument:  req.Instrument,
		Admin:       req.Admin,
	})
	if err != nil {
		s.respondServiceError(w, err, "update member")
		return
	}
	s.respondJSON(w, http.StatusOK, member)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveMember(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("user")); err != nil {
		s.respondServiceError(w, err, "remove member")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.GetSettings(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("user"))
	if err != nil {
		s.respondServiceError(w, err, "get settings")
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	settings, err := s.svc.UpdateSettings(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("user"), service.SettingsInput{
		NotifyNewEvent: req.NotifyNewEvent,
		NotifyReminder: req.NotifyReminder,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		s.respondServiceError(w, err, "update settings")
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
	"github.com/narvarokollen/narvaro/internal/service"
)

// maxEventLimit caps the limit query parameter.
const maxEventLimit = 500

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// eventRequest is checked by the service, which reports every problem at once.
type eventRequest struct {
	Type        string `json:"type"`
	Start       string `json:"start"`
	Stop        string `json:"stop"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

func (req eventRequest) input() service.EventInput {
	return service.EventInput{
		Type:        req.Type,
		Start:       req.Start,
		Stop:        req.Stop,
		Location:    req.Location,
		Description: req.Description,
	}
}

type cancelRequest struct {
	Cancelled *bool `json:"cancelled" validate:"required"`
}

// eventFilters reads from, to, cancelled and limit from the query string.
func (s *Server) eventFilters(r *http.Request) (repository.EventFilters, error) {
	q := r.URL.Query()
	var filters repository.EventFilters

	if raw := q.Get("from"); raw != "" {
		t, err := models.ParseEventTime(raw, s.svc.Location())
		if err != nil {
			return filters, fmt.Errorf("from: %w", err)
		}
		filters.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := models.ParseEventTime(raw, s.svc.Location())
		if err != nil {
			return filters, fmt.Errorf("to: %w", err)
		}
		filters.To = &t
	}
	if raw := q.Get("cancelled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, fmt.Errorf("cancelled must be a boolean")
		}
		filters.IncludeCancelled = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > maxEventLimit {
			return filters, fmt.Errorf("limit must be between 0 and %d", maxEventLimit)
		}
		filters.Limit = v
	}
	return filters, nil
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := s.eventFilters(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.svc.ListEvents(r.Context(), principalFrom(r.Context()), r.PathValue("band"), filters)
	if err != nil {
		s.respondServiceError(w, err, "list events")
		return
	}
	s.respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	filters, err := s.eventFilters(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	overview, err := s.svc.BandOverview(r.Context(), principalFrom(r.Context()), r.PathValue("band"), filters)
	if err != nil {
		s.respondServiceError(w, err, "get overview")
		return
	}
	s.respondJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	event, err := s.svc.CreateEvent(r.Context(), principalFrom(r.Context()), r.PathValue("band"), req.input())
	if err != nil {
		s.respondServiceError(w, err, "create event")
		return
	}
	s.respondJSON(w, http.StatusCreated, event)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.svc.GetEvent(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("event"))
	if err != nil {
		s.respondServiceError(w, err, "get event")
		return
	}
	s.respondJSON(w, http.StatusOK, event)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	event, err := s.svc.UpdateEvent(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("event"), req.input())
	if err != nil {
		s.respondServiceError(w, err, "update event")
		return
	}
	s.respondJSON(w, http.StatusOK, event)
}

func (s *Server) handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	event, err := s.svc.CancelEvent(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("event"), *req.Cancelled)
	if err != nil {
		s.respondServiceError(w, err, "cancel event")
		return
	}
	s.respondJSON(w, http.StatusOK, event)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEvent(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("event")); err != nil {
		s.respondServiceError(w, err, "delete event")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Participants
// ---------------------------------------------------------------------------

type responseRequest struct {
	Response string `json:"response" validate:"omitempty,oneof=yes no sub maybe"`
	Comment  string `json:"comment" validate:"max=500"`
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.svc.ListParticipants(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("event"))
	if err != nil {
		s.respondServiceError(w, err, "list participants")
		return
	}
	s.respondJSON(w, http.StatusOK, participants)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.EventSummary(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("event"))
	if err != nil {
		s.respondServiceError(w, err, "get summary")
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSetResponse(w http.ResponseWriter, r *http.Request) {
	var req responseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	participant, err := s.svc.SetResponse(r.Context(), principalFrom(r.Context()),
		r.PathValue("band"), r.PathValue("event"), r.PathValue("user"),
		models.Response(req.Response), req.Comment)
	if err != nil {
		s.respondServiceError(w, err, "save response")
		return
	}
	s.respondJSON(w, http.StatusOK, participant)
}

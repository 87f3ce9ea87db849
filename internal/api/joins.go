package api

import (
	"net/http"

	"github.com/narvarokollen/narvaro/internal/service"
)

// ---------------------------------------------------------------------------
// Join requests
// ---------------------------------------------------------------------------

type joinRequest struct {
	DisplayName string `json:"display_name" validate:"max=100"`
	Message     string `json:"message" validate:"max=1000"`
	Approved    bool   `json:"approved"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	// {user} is only present on the admin route that writes for someone else.
	created, err := s.svc.Join(r.Context(), principalFrom(r.Context()), r.PathValue("band"), service.JoinInput{
		UserID:      r.PathValue("user"),
		DisplayName: req.DisplayName,
		Message:     req.Message,
		Approved:    req.Approved,
	})
	if err != nil {
		s.respondServiceError(w, err, "join band")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListJoinRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.svc.ListJoinRequests(r.Context(), principalFrom(r.Context()), r.PathValue("band"))
	if err != nil {
		s.respondServiceError(w, err, "list join requests")
		return
	}
	s.respondJSON(w, http.StatusOK, requests)
}

func (s *Server) handleApproveJoinRequest(w http.ResponseWriter, r *http.Request) {
	member, err := s.svc.ApproveJoinRequest(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("user"))
	if err != nil {
		s.respondServiceError(w, err, "approve join request")
		return
	}
	s.respondJSON(w, http.StatusOK, member)
}

func (s *Server) handleRejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RejectJoinRequest(r.Context(), principalFrom(r.Context()), r.PathValue("band"), r.PathValue("user")); err != nil {
		s.respondServiceError(w, err, "remove join request")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Live queries
// ---------------------------------------------------------------------------

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topic := q.Get("topic")
	if topic == "" {
		topic = service.WatchEvents
	}

	sub, initial, err := s.svc.Watch(r.Context(), principalFrom(r.Context()), r.PathValue("band"), topic, q.Get("event"))
	if err != nil {
		s.respondServiceError(w, err, "watch "+topic)
		return
	}
	s.streamer.Stream(w, r, sub, initial)
}

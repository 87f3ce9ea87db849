package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/live"
	"github.com/narvarokollen/narvaro/internal/service"
)

// Options configures the HTTP server.
type Options struct {
	AuthSecret  string
	CORSOrigins []string
}

// Server provides the HTTP JSON API and the live query websockets.
type Server struct {
	svc      *service.Service
	logger   *logrus.Logger
	mux      *http.ServeMux
	auth     *Authenticator
	validate *validator.Validate
	streamer *live.Streamer
	cors     *cors.Cors
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger, opts Options) *Server {
	s := &Server{
		svc:      svc,
		logger:   logger,
		mux:      http.NewServeMux(),
		auth:     NewAuthenticator(opts.AuthSecret),
		validate: newValidator(),
		streamer: live.NewStreamer(opts.CORSOrigins, logger),
		cors: cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.cors.Handler(s.authenticate(s.instrument(s.mux)))
}

// Authenticator returns the token verifier of the server.
func (s *Server) Authenticator() *Authenticator {
	return s.auth
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/me", s.handleMe)

	// API – Bands
	s.mux.HandleFunc("GET /api/bands", s.handleListBands)
	s.mux.HandleFunc("POST /api/bands", s.handleCreateBand)
	s.mux.HandleFunc("GET /api/bands/{band}", s.handleGetBand)
	s.mux.HandleFunc("PUT /api/bands/{band}", s.handleUpdateBand)
	s.mux.HandleFunc("DELETE /api/bands/{band}", s.handleDeleteBand)

	// API – Hosts
	s.mux.HandleFunc("GET /api/hosts/{host}", s.handleResolveHost)
	s.mux.HandleFunc("PUT /api/hosts/{host}", s.handleSetHost)

	// API – Members
	s.mux.HandleFunc("GET /api/bands/{band}/members", s.handleListMembers)
	s.mux.HandleFunc("PUT /api/bands/{band}/members/{user}", s.handleUpdateMember)
	s.mux.HandleFunc("DELETE /api/bands/{band}/members/{user}", s.handleRemoveMember)
	s.mux.HandleFunc("GET /api/bands/{band}/members/{user}/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/bands/{band}/members/{user}/settings", s.handleUpdateSettings)

	// API – Events
	s.mux.HandleFunc("GET /api/bands/{band}/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/bands/{band}/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/bands/{band}/overview", s.handleOverview)
	s.mux.HandleFunc("GET /api/bands/{band}/events/{event}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/bands/{band}/events/{event}", s.handleUpdateEvent)
	s.mux.HandleFunc("PUT /api/bands/{band}/events/{event}/cancel", s.handleCancelEvent)
	s.mux.HandleFunc("DELETE /api/bands/{band}/events/{event}", s.handleDeleteEvent)

	// API – Participants
	s.mux.HandleFunc("GET /api/bands/{band}/events/{event}/participants", s.handleListParticipants)
	s.mux.HandleFunc("GET /api/bands/{band}/events/{event}/summary", s.handleSummary)
	s.mux.HandleFunc("PUT /api/bands/{band}/events/{event}/participants/{user}", s.handleSetResponse)

	// API – Join requests
	s.mux.HandleFunc("POST /api/bands/{band}/join", s.handleJoin)
	s.mux.HandleFunc("POST /api/bands/{band}/join/{user}", s.handleJoin)
	s.mux.HandleFunc("GET /api/bands/{band}/join", s.handleListJoinRequests)
	s.mux.HandleFunc("POST /api/bands/{band}/join/{user}/approve", s.handleApproveJoinRequest)
	s.mux.HandleFunc("DELETE /api/bands/{band}/join/{user}", s.handleRejectJoinRequest)

	// Live queries
	s.mux.HandleFunc("GET /api/bands/{band}/live", s.handleLive)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and access errors to status codes.
// Anything unexpected is logged and hidden behind a 500.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		s.respondError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, access.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, service.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalid):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.WithError(err).Errorf("failed to %s", action)
		s.respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON reads the request body into dst and validates it. The caller
// should return immediately when ok == false; the response is written.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (ok bool) {
	if r.Body == nil || r.Body == http.NoBody {
		s.respondError(w, http.StatusBadRequest, "request body is empty")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: must satisfy %s=%s", e.Field(), e.Tag(), e.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", e.Field(), e.Tag()))
		}
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// ---------------------------------------------------------------------------
// Health & profile
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	user, err := s.svc.EnsureUser(r.Context(), p)
	if err != nil {
		s.respondServiceError(w, err, "get profile")
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

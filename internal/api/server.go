package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rovermx/groundstation/internal/app/hub"
	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

// Server is the viewer-facing surface: the paginated query/mutation API,
// the command endpoint, and the live-push websocket. It talks to the
// store directly on every request; there is no cache between the
// ingestion path and a List.
type Server struct {
	store    ports.SampleStore
	hub      *hub.Hub
	commands ports.CommandPublisher
	obs      ports.Observability
	mux      *http.ServeMux

	defaultLimit int64
	maxLimit     int64
	now          func() time.Time
}

// Options carries the server's tunables. Commands may be nil when no
// command topic is configured; the endpoint then answers 503.
type Options struct {
	Commands     ports.CommandPublisher
	DefaultLimit int64
	MaxLimit     int64
}

func NewServer(store ports.SampleStore, h *hub.Hub, obs ports.Observability, opts Options) *Server {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		// The cap must never undercut the default, or every
		// unparameterized list would be silently clamped.
		opts.MaxLimit = max(100, opts.DefaultLimit)
	}

	s := &Server{
		store:        store,
		hub:          h,
		commands:     opts.Commands,
		obs:          obs,
		mux:          http.NewServeMux(),
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		now:          time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /samples", s.handleList)
	s.mux.HandleFunc("POST /samples", s.handleCreate)
	s.mux.HandleFunc("GET /samples/{id}", s.handleGet)
	s.mux.HandleFunc("PUT /samples/{id}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /samples/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /commands", s.handleCommand)
	s.mux.HandleFunc("GET /live", s.handleLive)
}

func (s *Server) Handler() http.Handler { return s.mux }

type listResponse struct {
	Data        []*domain.Sample `json:"data"`
	TotalPages  int64            `json:"totalPages"`
	CurrentPage int64            `json:"currentPage"`
	Total       int64            `json:"total"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := s.listQuery(r)

	samples, err := s.store.Find(r.Context(), q)
	if err != nil {
		s.storeFailure(w, "list", err)
		return
	}
	total, err := s.store.Count(r.Context(), q)
	if err != nil {
		s.storeFailure(w, "count", err)
		return
	}

	totalPages := int64(0)
	if total > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:        samples,
		TotalPages:  totalPages,
		CurrentPage: q.Page,
		Total:       total,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sample, err := s.store.FindByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "sample not found"})
		return
	}
	if err != nil {
		s.storeFailure(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// handleCreate is the manual-entry path. It shares the store insert with
// the feed pipeline but deliberately does not broadcast: newData events
// are reserved for live telemetry.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var cand domain.Candidate
	if err := json.NewDecoder(r.Body).Decode(&cand); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "malformed sample payload"})
		return
	}
	if err := cand.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}

	stored, err := s.store.Insert(r.Context(), cand.Sample(s.now()))
	if err != nil {
		s.storeFailure(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var u domain.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "malformed update payload"})
		return
	}

	updated, err := s.store.UpdateByID(r.Context(), r.PathValue("id"), u)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "sample not found"})
		return
	}
	if err != nil {
		s.storeFailure(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "sample not found"})
		return
	}
	if err != nil {
		s.storeFailure(w, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "sample deleted"})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeJSON(w, http.StatusServiceUnavailable, messageResponse{Message: "command channel not configured"})
		return
	}

	var cmd domain.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "malformed command payload"})
		return
	}
	if cmd.Direction == "" && cmd.Lat == nil && cmd.Lng == nil && cmd.LineTracking == nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "empty command"})
		return
	}

	if err := s.commands.Publish(r.Context(), &cmd); err != nil {
		s.obs.LogError("command_publish_failed", err)
		writeJSON(w, http.StatusBadGateway, messageResponse{Message: "command delivery failed"})
		return
	}
	writeJSON(w, http.StatusAccepted, messageResponse{Message: "command published"})
}

// listQuery parses pagination parameters leniently: out-of-range values
// fall back to defaults, limit is capped so one request cannot pull the
// whole record.
func (s *Server) listQuery(r *http.Request) ports.ListQuery {
	q := ports.ListQuery{
		Page:   1,
		Limit:  s.defaultLimit,
		Search: r.URL.Query().Get("search"),
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64); err == nil && v >= 1 {
		q.Page = v
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 {
		q.Limit = v
	}
	if q.Limit > s.maxLimit {
		q.Limit = s.maxLimit
	}
	return q
}

// storeFailure answers a generic 500; the diagnostic stays in the log.
func (s *Server) storeFailure(w http.ResponseWriter, op string, err error) {
	s.obs.LogError("store_request_failed", err, ports.Field{Key: "op", Value: op})
	writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

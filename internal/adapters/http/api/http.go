// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/cors"

	"github.com/okian/routinerec/internal/adapters/cache"
	"github.com/okian/routinerec/internal/adapters/export"
	"github.com/okian/routinerec/internal/adapters/repository"
	service "github.com/okian/routinerec/internal/app"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/domain/routine"
	"github.com/okian/routinerec/internal/domain/suggest"
	"github.com/okian/routinerec/internal/domain/types"
	"github.com/okian/routinerec/pkg/logger"
	"github.com/okian/routinerec/pkg/metrics"
)

const (
	defaultMaxWindowDays = 90
	maxBodyBytes         = 1 << 20
	unavailableMessage   = "storage is unavailable, try again later"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Users() []model.User
	LoadUser(ctx context.Context, id string) (model.UserData, error)
	SubmittableEvents(ctx context.Context, userID string) ([]model.Event, error)
	Routine(ctx context.Context, userID string, event model.Event) (model.Routine, bool, error)
	ReplaceRoutine(ctx context.Context, userID string, event model.Event, r model.Routine) (model.Routine, error)
	Lineup(ctx context.Context, userID string, event model.Event) (routine.Lineup, error)

	ListSubmissions(ctx context.Context, userID string, q types.ListQuery) ([]model.Submission, error)
	CreateSubmission(ctx context.Context, userID string, req types.SubmissionRequest) (model.Submission, error)
	DeleteSubmission(ctx context.Context, userID string, id model.SubmissionID) error

	Breakdown(ctx context.Context, q types.StatsQuery) (types.BreakdownResult, error)
	Comparison(ctx context.Context, q types.StatsQuery) (types.ComparisonResult, error)
	Refresh(ctx context.Context) (types.Coverage, error)

	Suggest(ctx context.Context, event model.Event, skills []model.SubmissionSkill) (suggest.Result, error)
	Export(ctx context.Context) ([]byte, error)

	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps          Dependencies
	passwordHash  string
	corsOrigins   []string
	maxWindowDays int
	logger        logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		maxWindowDays: defaultMaxWindowDays,
		logger:        logger.Get().Named("api"),
		healthHandler: NewHealthHandler(metrics.GetRegistry()),
		statsHandler:  NewStatsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	open := func(endpoint string, h http.HandlerFunc) http.HandlerFunc {
		return MetricsMiddleware(h, endpoint)
	}
	gated := func(endpoint string, h http.HandlerFunc) http.HandlerFunc {
		return MetricsMiddleware(RequirePassword(s.passwordHash, h), endpoint)
	}

	mux.HandleFunc("GET /healthz", open("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("GET /status", open("status", s.statsHandler.HandleStats))

	mux.HandleFunc("GET /users", gated("users", s.handleListUsers))
	mux.HandleFunc("GET /users/{id}", gated("user", s.handleGetUser))
	mux.HandleFunc("GET /users/{id}/events", gated("user_events", s.handleSubmittableEvents))
	mux.HandleFunc("GET /users/{id}/routines/{event}", gated("routine", s.handleGetRoutine))
	mux.HandleFunc("PUT /users/{id}/routines/{event}", gated("routine", s.handleReplaceRoutine))
	mux.HandleFunc("GET /users/{id}/routines/{event}/lineup", gated("lineup", s.handleLineup))
	mux.HandleFunc("GET /users/{id}/submissions", gated("submissions", s.handleListSubmissions))
	mux.HandleFunc("POST /users/{id}/submissions", gated("submissions", s.handleCreateSubmission))
	mux.HandleFunc("DELETE /users/{id}/submissions/{sid}", gated("submission", s.handleDeleteSubmission))

	mux.HandleFunc("GET /stats/breakdown", gated("breakdown", s.handleBreakdown))
	mux.HandleFunc("GET /stats/comparison", gated("comparison", s.handleComparison))
	mux.HandleFunc("POST /stats/refresh", gated("refresh", s.handleRefresh))

	mux.HandleFunc("POST /suggestions", gated("suggestions", s.handleSuggest))
	mux.HandleFunc("GET /export.xlsx", gated("export", s.handleExport))
}

// Handler wraps mux with request ids and CORS.
func (s *Server) Handler(mux http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization", passwordHeader, idempotencyHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return RequestID(c.Handler(mux))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status code and writes it. Storage failures share one
// message so backend details never reach clients.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err),
		)
	}
	if status == http.StatusServiceUnavailable || status == http.StatusInternalServerError {
		writeError(w, status, code, errors.New(unavailableMessage))
		return
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, service.ErrUnknownUser),
		errors.Is(err, service.ErrSubmissionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, export.ErrNoData):
		return http.StatusNotFound, "no_data"
	case errors.Is(err, service.ErrDuplicateSubmission):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, routine.ErrNotSubmittable):
		return http.StatusUnprocessableEntity, "not_submittable"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrUnknownEvent),
		errors.Is(err, model.ErrNegativeNumber),
		errors.Is(err, model.ErrBadValue),
		errors.Is(err, model.ErrBadDeduction),
		errors.Is(err, model.ErrBadID),
		errors.Is(err, routine.ErrSlotOutOfRange),
		errors.Is(err, routine.ErrNoSuchAlternate),
		errors.Is(err, service.ErrBadWindow),
		errors.Is(err, service.ErrBadOrder):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, cache.ErrRefreshFailed),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

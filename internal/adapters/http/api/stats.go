// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/routinerec/internal/domain/types"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /status requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}

func (s *Server) statsQuery(r *http.Request) (types.StatsQuery, error) {
	q := r.URL.Query()
	event, err := queryEvent(q)
	if err != nil {
		return types.StatsQuery{}, err
	}
	days, err := queryDays(q, s.maxWindowDays)
	if err != nil {
		return types.StatsQuery{}, err
	}
	dismounts, err := queryBool(q, "dismounts")
	if err != nil {
		return types.StatsQuery{}, err
	}
	return types.StatsQuery{
		Event:      event,
		WindowDays: days,
		UserID:     q.Get("user"),
		Skill:      q.Get("skill"),
		Dismounts:  dismounts,
	}, nil
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	const op = "api.breakdown"
	q, err := s.statsQuery(r)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := s.deps.Breakdown(r.Context(), q)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	const op = "api.comparison"
	q, err := s.statsQuery(r)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := s.deps.Comparison(r.Context(), q)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh"
	cov, err := s.deps.Refresh(r.Context())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, cov)
}

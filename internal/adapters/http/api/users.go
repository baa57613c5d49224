package api

import (
	"fmt"
	"net/http"

	"github.com/okian/routinerec/internal/domain/model"
)

type userResponse struct {
	ID string `json:"id"`
	model.UserData
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Users())
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	id := r.PathValue("id")
	data, err := s.deps.LoadUser(r.Context(), id)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: id, UserData: data})
}

func (s *Server) handleSubmittableEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.submittable_events"
	events, err := s.deps.SubmittableEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type routineRequest struct {
	Skills model.Routine `json:"skills"`
}

type routineResponse struct {
	Skills model.Routine `json:"skills"`
	// Template is set when nothing is stored and Skills is the blank lineup.
	Template bool `json:"template"`
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_routine"
	event, err := pathEvent(r)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	skills, stored, err := s.deps.Routine(r.Context(), r.PathValue("id"), event)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, routineResponse{Skills: skills, Template: !stored})
}

func (s *Server) handleReplaceRoutine(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_routine"
	event, err := pathEvent(r)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req routineRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	saved, err := s.deps.ReplaceRoutine(r.Context(), r.PathValue("id"), event, req.Skills)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, routineRequest{Skills: saved})
}

func (s *Server) handleLineup(w http.ResponseWriter, r *http.Request) {
	const op = "api.lineup"
	event, err := pathEvent(r)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	l, err := s.deps.Lineup(r.Context(), r.PathValue("id"), event)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func pathEvent(r *http.Request) (model.Event, error) {
	e, err := model.ParseEvent(r.PathValue("event"))
	if err != nil {
		return "", fmt.Errorf("event: %w", err)
	}
	return e, nil
}

package api

import (
	"net/http"
	"strings"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/domain/types"
)

type submissionsResponse struct {
	Submissions []model.Submission `json:"submissions"`
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_submissions"
	q := r.URL.Query()
	event, err := queryEvent(q)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	days, err := queryDays(q, s.maxWindowDays)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	subs, err := s.deps.ListSubmissions(r.Context(), r.PathValue("id"), types.ListQuery{
		Event:      event,
		WindowDays: days,
		Order:      strings.ToLower(q.Get("order")),
	})
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, submissionsResponse{Submissions: subs})
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_submission"
	var req types.SubmissionRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	event, err := model.ParseEvent(string(req.Event))
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	req.Event = event
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(idempotencyHeader))

	sub, err := s.deps.CreateSubmission(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_submission"
	id, err := model.ParseSubmissionID(r.PathValue("sid"))
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := s.deps.DeleteSubmission(r.Context(), r.PathValue("id"), id); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

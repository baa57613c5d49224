package api

import (
	"net/http"
	"strconv"

	"github.com/okian/routinerec/internal/adapters/export"
	"github.com/okian/routinerec/internal/domain/model"
)

type suggestRequest struct {
	Event  model.Event             `json:"event"`
	Skills []model.SubmissionSkill `json:"skills"`
}

// handleSuggest always answers 200 once the request is valid; collaborator
// failures are reported in the body's error field.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggest"
	var req suggestRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	event, err := model.ParseEvent(string(req.Event))
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := s.deps.Suggest(r.Context(), event, req.Skills)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	b, err := s.deps.Export(r.Context())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="routines.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

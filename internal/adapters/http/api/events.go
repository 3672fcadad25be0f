package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/matchreel/internal/app"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/model"
	"github.com/okian/matchreel/internal/domain/types"
)

type paddingRequest struct {
	Before *int `json:"beforePadding" validate:"required"`
	After  *int `json:"afterPadding" validate:"required"`
}

// createRequest carries a new event. Content rules are enforced by the
// session, which owns the event validator.
type createRequest struct {
	Type        string  `json:"type"`
	Timestamp   float64 `json:"timestamp"`
	Team        string  `json:"team"`
	Description string  `json:"description"`
	Player      string  `json:"player"`
}

type eventResponse struct {
	Index int         `json:"index"`
	Event model.Event `json:"event"`
	View  types.View  `json:"view"`
}

type bulkResponse struct {
	Count int        `json:"count"`
	View  types.View `json:"view"`
}

func (s *Server) handlePadding(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	idx, err := indexParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	req, err := decode[paddingRequest](w, r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	if _, err := sess.SetPadding(idx, *req.Before, *req.After); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleBeginCreate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.BeginCreate()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleCancelCreate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.CancelCreate()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	req, err := decode[createRequest](w, r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	e, idx, err := sess.CreateEvent(r.Context(), model.Event{
		Type:        req.Type,
		Timestamp:   req.Timestamp,
		Team:        req.Team,
		Description: req.Description,
		Player:      req.Player,
	})
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventResponse{Index: idx, Event: e, View: sess.View()})
}

func (s *Server) handleStartEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	idx, err := indexParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	e, err := sess.StartEditOne(idx)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Index: idx, Event: e, View: sess.View()})
}

// handleUpdateEdit patches the working copy. The index in the path must be
// the event being edited.
func (s *Server) handleUpdateEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	idx, err := s.editingIndex(sess, r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	patch, err := decode[model.EventPatch](w, r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	e, err := sess.UpdateEditOne(patch)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Index: idx, Event: e, View: sess.View()})
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := s.editingIndex(sess, r); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	sess.CancelEditOne()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := s.editingIndex(sess, r); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	idx, err := sess.SaveEditOne(r.Context())
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	e, err := sess.Event(idx)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Index: idx, Event: e, View: sess.View()})
}

func (s *Server) handleEnterBulk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	n, err := sess.EnterBulkEdit()
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{Count: n, View: sess.View()})
}

func (s *Server) handleMutateBulk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	idx, err := indexParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	patch, err := decode[model.EventPatch](w, r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	e, err := sess.MutateBulk(idx, patch)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Index: idx, Event: e, View: sess.View()})
}

func (s *Server) handleCommitBulk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.ExitBulkEdit(r.Context()); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDiscardBulk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.DiscardBulkEdit()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleBin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	idx, err := indexParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	if err := sess.Bin(r.Context(), idx); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	idx, err := indexParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	if err := sess.Restore(r.Context(), idx); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// editingIndex checks the path index names the event under single edit.
func (s *Server) editingIndex(sess *app.Session, r *http.Request) (int, error) {
	idx, err := indexParam(r)
	if err != nil {
		return 0, err
	}
	editing := sess.View().EditingIndex
	if editing < 0 {
		return 0, errs.Wrap("api.edit", errs.ErrConflict, errors.New("no edit in progress"))
	}
	if editing != idx {
		return 0, errs.Wrap("api.edit", errs.ErrConflict, fmt.Errorf("event %d is being edited, not %d", editing, idx))
	}
	return idx, nil
}

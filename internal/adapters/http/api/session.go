package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/matchreel/internal/domain/filter"
	"github.com/okian/matchreel/pkg/logger"
)

type currentRequest struct {
	Index *int `json:"index" validate:"required,gte=-1"`
}

type seekRequest struct {
	Seconds *float64 `json:"seconds" validate:"required,gte=0"`
}

type seekResponse struct {
	Index int `json:"index"`
}

// handleOpen loads the game from the Game API unless it is already open.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Open(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		s.fail(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// handleClose flushes any pending autosave and drops the session.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if err := s.sessions.CloseSession(r.Context(), gameID); err != nil {
		s.fail(w, r, nil, err)
		return
	}
	s.logger.Debug(r.Context(), "session closed over http", logger.String("game", gameID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	cfg, err := decode[filter.Config](w, r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	if err := sess.SetFilter(cfg); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// handleCurrent moves the cursor; -1 clears it.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	req, err := decode[currentRequest](w, r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	if err := sess.SetCurrent(*req.Index); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	req, err := decode[seekRequest](w, r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	idx, err := sess.Seek(*req.Seconds)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, seekResponse{Index: idx})
}

// handleSave re-sends the full list, e.g. after a failed save.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Retry(r.Context()); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

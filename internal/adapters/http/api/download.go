package api

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/okian/matchreel/internal/adapters/render"
	"github.com/okian/matchreel/internal/domain/types"
	"github.com/okian/matchreel/pkg/logger"
)

type toggleResponse struct {
	Selected bool       `json:"selected"`
	View     types.View `json:"view"`
}

type selectAllResponse struct {
	Added int        `json:"added"`
	View  types.View `json:"view"`
}

func (s *Server) handleEnterDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.EnterDownloadMode()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleExitDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.ExitDownloadMode()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flow, err := flowParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	idx, err := indexParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	selected, err := sess.ToggleSelection(flow, idx)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Selected: selected, View: sess.View()})
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flow, err := flowParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	n, err := sess.SelectAll(flow)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, selectAllResponse{Added: n, View: sess.View()})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flow, err := flowParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	if err := sess.ClearSelection(flow); err != nil {
		s.fail(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// handleDownload renders the flow's selection and streams the clip back as
// an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flow, err := flowParam(r)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}
	art, err := sess.Download(r.Context(), flow)
	if err != nil {
		s.fail(w, r, sess, err)
		return
	}

	name := art.FileName
	if name == "" {
		name = render.FallbackFileName(sess.GameID())
	}
	ct := art.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		s.logger.Warn(r.Context(), "clip stream interrupted",
			logger.String("file", name),
			logger.Error(err),
		)
	}
}

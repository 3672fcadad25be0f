// Package api exposes annotation sessions over a JSON HTTP facade.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/okian/matchreel/internal/app"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/types"
	"github.com/okian/matchreel/pkg/logger"
)

// Sessions is the session registry the handlers drive.
type Sessions interface {
	Open(ctx context.Context, gameID string) (*app.Session, error)
	Session(gameID string) (*app.Session, error)
	CloseSession(ctx context.Context, gameID string) error
	Stats() types.Stats
}

// Server wires HTTP routes for the annotation API.
type Server struct {
	sessions Sessions
	logger   logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server over sessions.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions:      sessions,
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(sessions),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	return s
}

// Register attaches all routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer, MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/games/{gameID}", func(r chi.Router) {
		r.Post("/session", s.handleOpen)
		r.Delete("/session", s.handleClose)
		r.Get("/view", s.handleView)
		r.Put("/filter", s.handleFilter)
		r.Put("/current", s.handleCurrent)
		r.Put("/playhead", s.handleSeek)
		r.Post("/save", s.handleSave)

		r.Post("/create", s.handleBeginCreate)
		r.Delete("/create", s.handleCancelCreate)
		r.Post("/events", s.handleCreate)
		r.Put("/events/{index}/padding", s.handlePadding)
		r.Post("/events/{index}/edit", s.handleStartEdit)
		r.Put("/events/{index}/edit", s.handleUpdateEdit)
		r.Delete("/events/{index}/edit", s.handleCancelEdit)
		r.Post("/events/{index}/edit/save", s.handleSaveEdit)
		r.Post("/events/{index}/bin", s.handleBin)
		r.Delete("/events/{index}/bin", s.handleRestore)

		r.Post("/bulk-edit", s.handleEnterBulk)
		r.Patch("/bulk-edit/{index}", s.handleMutateBulk)
		r.Post("/bulk-edit/commit", s.handleCommitBulk)
		r.Delete("/bulk-edit", s.handleDiscardBulk)

		r.Post("/download-mode", s.handleEnterDownload)
		r.Delete("/download-mode", s.handleExitDownload)
		r.Post("/selection/{flow}/all", s.handleSelectAll)
		r.Post("/selection/{flow}/{index}", s.handleToggle)
		r.Delete("/selection/{flow}", s.handleClearSelection)
		r.Post("/download/{flow}", s.handleDownload)
	})
}

// Routes returns a fresh router with every route registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	View    *types.View `json:"view,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status and response code.
func statusFor(err error) (int, string) {
	switch errs.KindOf(err) {
	case errs.ErrValidation:
		return http.StatusBadRequest, "validation"
	case errs.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case errs.ErrConflict:
		return http.StatusConflict, "conflict"
	case errs.ErrClosed:
		return http.StatusGone, "closed"
	case errs.ErrPersistence:
		return http.StatusBadGateway, "persistence"
	case errs.ErrRender:
		return http.StatusBadGateway, "render"
	}
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal"
}

// fail writes err. A persistence failure still carries the view, because the
// change it reports was applied locally.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, sess *app.Session, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("code", code),
			logger.Error(err),
		)
	}
	resp := errorResponse{Code: code, Message: err.Error()}
	if sess != nil && errors.Is(err, errs.ErrPersistence) {
		v := sess.View()
		resp.View = &v
	}
	writeJSON(w, status, resp)
}

// session resolves the open session named by the gameID route parameter.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	sess, err := s.sessions.Session(chi.URLParam(r, "gameID"))
	if err != nil {
		s.fail(w, r, nil, err)
		return nil, false
	}
	return sess, true
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Validation("api.index", "index must be an integer, got "+strconv.Quote(raw))
	}
	return i, nil
}

func flowParam(r *http.Request) (app.Flow, error) {
	return app.ParseFlow(chi.URLParam(r, "flow"))
}

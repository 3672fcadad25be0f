package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/matchreel/internal/adapters/gameapi"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/types"
	"github.com/okian/matchreel/pkg/logger"
	"github.com/okian/matchreel/pkg/metrics"
)

// GameLoader reads a game's stored events and analysis.
type GameLoader interface {
	GetGame(ctx context.Context, gameID string) (*gameapi.Game, error)
}

// GameStore is the Game API: read on open, full-list replace on save.
type GameStore interface {
	GameLoader
	Saver
}

// Service keeps one Session per open game.
type Service struct {
	mu sync.RWMutex

	games    GameStore
	renderer Renderer
	sessions map[string]*Session
	opts     []SessionOption
	started  bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSessionOptions sets the options every new session is created with.
func WithSessionOptions(opts ...SessionOption) Option {
	return func(s *Service) {
		s.opts = append(s.opts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over the Game API and the render service.
func New(games GameStore, renderer Renderer, opts ...Option) *Service {
	s := &Service{
		games:    games,
		renderer: renderer,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start marks the service ready to open sessions.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.started = true
	s.logger.Info(ctx, "annotation service started")
	return nil
}

// Stop closes every open session, flushing pending autosaves.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.started = false
	s.mu.Unlock()

	var errList []error
	for id, sess := range sessions {
		if err := sess.Close(ctx); err != nil {
			errList = append(errList, fmt.Errorf("game %s: %w", id, err))
		}
	}
	metrics.UpdateSessionsOpen(0)
	s.logger.Info(ctx, "annotation service stopped", logger.Int("sessions", len(sessions)))
	return errors.Join(errList...)
}

// Open returns the session for gameID, loading it from the Game API when it
// is not open yet.
func (s *Service) Open(ctx context.Context, gameID string) (*Session, error) {
	const op = "service.open"
	if gameID == "" {
		return nil, errs.Validation(op, "game id is required")
	}

	s.mu.RLock()
	started := s.started
	existing, ok := s.sessions[gameID]
	s.mu.RUnlock()
	if !started {
		return nil, errs.New(op, errs.ErrClosed)
	}
	if ok {
		return existing, nil
	}

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sess := NewSession(gameID, s.games, s.renderer, s.opts...)
	if err := sess.Load(game); err != nil {
		_ = sess.Close(ctx)
		return nil, err
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		_ = sess.Close(ctx)
		return nil, errs.New(op, errs.ErrClosed)
	}
	if winner, ok := s.sessions[gameID]; ok {
		// Opened concurrently; keep the first one.
		s.mu.Unlock()
		_ = sess.discard(ctx)
		winner.republishGauges()
		return winner, nil
	}
	s.sessions[gameID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.UpdateSessionsOpen(n)
	s.logger.Info(ctx, "session opened", logger.String("game", gameID))
	return sess, nil
}

// Session returns the open session for gameID.
func (s *Service) Session(gameID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[gameID]
	if !ok {
		return nil, errs.Wrap("service.session", errs.ErrNotFound, fmt.Errorf("no open session for game %q", gameID))
	}
	return sess, nil
}

// CloseSession flushes and drops the session for gameID.
func (s *Service) CloseSession(ctx context.Context, gameID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[gameID]
	if !ok {
		s.mu.Unlock()
		return errs.Wrap("service.close_session", errs.ErrNotFound, fmt.Errorf("no open session for game %q", gameID))
	}
	delete(s.sessions, gameID)
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.UpdateSessionsOpen(n)
	return sess.Close(ctx)
}

// Games lists the open games, sorted.
func (s *Service) Games() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Stats aggregates every open session.
func (s *Service) Stats() types.Stats {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	st := types.Stats{Sessions: len(sessions)}
	for _, sess := range sessions {
		events, binned := sess.Counts()
		save := sess.SaveStatus()
		st.Events += events
		st.Binned += binned
		st.Saves += save.Saves
		st.Failures += save.Failures
	}
	return st
}

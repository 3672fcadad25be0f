package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/matchreel/internal/adapters/gameapi"
	"github.com/okian/matchreel/internal/domain/clip"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/model"
	"github.com/okian/matchreel/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeGames stands in for the Game API.
type fakeGames struct {
	mu      sync.Mutex
	games   map[string]*gameapi.Game
	saves   [][]model.EventPayload
	saveErr error
	gate    chan struct{}

	// when set, GetGame reports on reading and blocks until getGate closes
	reading chan struct{}
	getGate chan struct{}
}

func newFakeGames() *fakeGames {
	return &fakeGames{games: make(map[string]*gameapi.Game)}
}

func (f *fakeGames) put(gameID string, events ...model.Event) {
	g := &gameapi.Game{ID: gameID}
	for _, e := range events {
		g.Events = append(g.Events, gameapi.Event{Event: e})
	}
	f.mu.Lock()
	f.games[gameID] = g
	f.mu.Unlock()
}

func (f *fakeGames) GetGame(_ context.Context, gameID string) (*gameapi.Game, error) {
	if f.getGate != nil {
		f.reading <- struct{}{}
		<-f.getGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[gameID]
	if !ok {
		return nil, errs.New("fake.get_game", errs.ErrNotFound)
	}
	return g, nil
}

func (f *fakeGames) SaveEvents(ctx context.Context, _ string, events []model.EventPayload) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, append([]model.EventPayload(nil), events...))
	return f.saveErr
}

func (f *fakeGames) setSaveErr(err error) {
	f.mu.Lock()
	f.saveErr = err
	f.mu.Unlock()
}

func (f *fakeGames) setGate(gate chan struct{}) {
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
}

func (f *fakeGames) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeGames) lastSave() []model.EventPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

// waitSaves polls until at least n saves happened or the deadline passes.
func (f *fakeGames) waitSaves(t *testing.T, n int) int {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c := f.saveCount(); c >= n {
			return c
		}
		time.Sleep(5 * time.Millisecond)
	}
	return f.saveCount()
}

// fakeRenderer stands in for the render service.
type fakeRenderer struct {
	mu   sync.Mutex
	reqs []clip.Request
	err  error

	// when set, CreateClip reports on entry and blocks until gate closes
	entered chan struct{}
	gate    chan struct{}
}

func (r *fakeRenderer) CreateClip(_ context.Context, gameID string, req clip.Request) (clip.Artifact, error) {
	if r.gate != nil {
		r.entered <- struct{}{}
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return clip.Artifact{}, r.err
	}
	return clip.Artifact{Data: []byte("clip"), FileName: "highlights-" + gameID + ".mp4", ContentType: "video/mp4"}, nil
}

func (r *fakeRenderer) lastRequest() clip.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[len(r.reqs)-1]
}

func ev(typ string, ts float64) model.Event {
	return model.Event{Type: typ, Timestamp: ts}
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func payloadTypes(p []model.EventPayload) []string {
	out := make([]string, len(p))
	for i, e := range p {
		out[i] = e.Type
	}
	return out
}

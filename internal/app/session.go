// Package app hosts annotation sessions: one owned state machine per open
// game, plus the registry that opens and closes them.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/matchreel/internal/adapters/gameapi"
	"github.com/okian/matchreel/internal/adapters/repository"
	"github.com/okian/matchreel/internal/domain/clip"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/filter"
	"github.com/okian/matchreel/internal/domain/model"
	"github.com/okian/matchreel/internal/domain/padding"
	"github.com/okian/matchreel/internal/domain/selection"
	"github.com/okian/matchreel/internal/domain/types"
	"github.com/okian/matchreel/pkg/logger"
	"github.com/okian/matchreel/pkg/metrics"
)

// Renderer turns a clip request into a downloadable artifact.
type Renderer interface {
	CreateClip(ctx context.Context, gameID string, req clip.Request) (clip.Artifact, error)
}

var (
	errNotEditing     = errors.New("no edit in progress")
	errNotBulkEditing = errors.New("bulk edit is not active")
	errBinned         = errors.New("event is binned")
	errNotInBulk      = errors.New("event is not part of the bulk edit")
	errNotVisible     = errors.New("event is not visible")
)

// Session is the annotation editor for one game. It owns the event store,
// paddings, bin set, both selection sets and the edit state; everything is
// mutated through its methods under one lock.
//
// Methods take original indices. Internally every map keys on the event's
// stable ID, so an insert that shifts positions never re-attaches state to
// the wrong event. Indices are only valid until the next CreateEvent or
// edit that moves an event.
//
// Mutations that persist apply locally first, release the lock, then wait
// for the save. A failed save leaves the local change in place and returns
// errs.ErrPersistence.
type Session struct {
	mu sync.Mutex

	gameID   string
	store    *repository.EventStore
	paddings *padding.Model
	binned   map[string]struct{}
	clipSel  *selection.Set
	batchSel *selection.Set
	filter   filter.Config
	analysis map[string]json.RawMessage

	currentID string
	editingID string
	draft     model.Event
	bulk      map[string]model.Event
	creating  bool
	download  bool
	scoreline bool
	closed    bool

	coord    *Coordinator
	renderer Renderer

	logger logger.Logger
}

// NewSession creates an empty session. Call Load to populate it.
func NewSession(gameID string, saver Saver, renderer Renderer, opts ...SessionOption) *Session {
	cfg := sessionConfig{clipCap: selection.DefaultClipCap}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := cfg.logger
	if l == nil {
		l = logger.Get().Named("session")
	}
	l = l.With(logger.String("game", gameID))

	s := &Session{
		gameID:    gameID,
		store:     repository.NewEventStore(repository.WithName(gameID)),
		paddings:  padding.New(cfg.padding...),
		binned:    make(map[string]struct{}),
		clipSel:   selection.New(selection.WithCap(cfg.clipCap)),
		batchSel:  selection.New(),
		filter:    filter.Default(),
		scoreline: cfg.includeScoreline,
		renderer:  renderer,
		logger:    l,
	}
	copts := append([]CoordinatorOption{WithCoordinatorLogger(l.Named("save"))}, cfg.coordinator...)
	s.coord = NewCoordinator(gameID, saver, s.Snapshot, copts...)
	return s
}

// GameID returns the game this session edits.
func (s *Session) GameID() string { return s.gameID }

// Load replaces the timeline with a game's stored events and resets every
// piece of session state. Persisted paddings seed the padding model.
func (s *Session) Load(game *gameapi.Game) error {
	const op = "session.load"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return err
	}

	events := make([]model.Event, len(game.Events))
	seeds := make(map[string]model.Padding)
	for i, e := range game.Events {
		ev := e.Event
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		events[i] = ev
		if e.Padding != nil {
			seeds[ev.ID] = *e.Padding
		}
	}
	if err := s.store.Load(events); err != nil {
		return err
	}

	s.paddings.Reset()
	for id, p := range seeds {
		s.paddings.Seed(id, p)
	}
	s.analysis = game.Extra
	s.binned = make(map[string]struct{})
	s.clipSel.Clear()
	s.batchSel.Clear()
	s.filter = filter.Default()
	s.currentID, s.editingID, s.draft, s.bulk = "", "", model.Event{}, nil
	s.creating, s.download = false, false
	s.publishGauges()

	s.logger.Info(context.Background(), "session loaded",
		logger.Int("events", len(events)),
		logger.Int("paddings", len(seeds)),
	)
	return nil
}

// StartEditOne snapshots the event at index into a working copy. Any bulk
// edit in progress is discarded.
func (s *Session) StartEditOne(index int) (model.Event, error) {
	const op = "session.start_edit_one"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return model.Event{}, err
	}
	id, err := s.store.IDAt(index)
	if err != nil {
		return model.Event{}, err
	}
	if s.isBinned(id) {
		return model.Event{}, errs.Wrap(op, errs.ErrConflict, errBinned)
	}
	e, err := s.store.Get(index)
	if err != nil {
		return model.Event{}, err
	}
	s.bulk = nil
	s.editingID = id
	s.draft = e
	return e, nil
}

// Event returns the committed event at index.
func (s *Session) Event(index int) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("session.event"); err != nil {
		return model.Event{}, err
	}
	return s.store.Get(index)
}

// UpdateEditOne applies patch to the working copy only.
func (s *Session) UpdateEditOne(patch model.EventPatch) (model.Event, error) {
	const op = "session.update_edit_one"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return model.Event{}, err
	}
	if s.editingID == "" {
		return model.Event{}, errs.Wrap(op, errs.ErrConflict, errNotEditing)
	}
	s.draft = patch.Apply(s.draft)
	return s.draft, nil
}

// SaveEditOne writes the working copy back and saves the full list. It
// returns the event's index after re-sorting. An invalid working copy is
// rejected and the edit stays open.
func (s *Session) SaveEditOne(ctx context.Context) (int, error) {
	const op = "session.save_edit_one"
	s.mu.Lock()
	if err := s.checkOpen(op); err != nil {
		s.mu.Unlock()
		return -1, err
	}
	if s.editingID == "" {
		s.mu.Unlock()
		return -1, errs.Wrap(op, errs.ErrConflict, errNotEditing)
	}
	if err := s.draft.Validate(); err != nil {
		s.mu.Unlock()
		return -1, errs.Wrap(op, errs.ErrValidation, err)
	}
	idx, err := s.store.IndexOf(s.editingID)
	if err != nil {
		s.mu.Unlock()
		return -1, err
	}
	idx, err = s.store.Replace(idx, s.draft)
	if err != nil {
		s.mu.Unlock()
		return -1, err
	}
	s.editingID, s.draft = "", model.Event{}
	s.mu.Unlock()

	return idx, s.save(ctx, "edit_one")
}

// CancelEditOne discards the working copy. No-op when not editing.
func (s *Session) CancelEditOne() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID, s.draft = "", model.Event{}
}

// EnterBulkEdit clones every visible event into the edit session and returns
// how many were cloned. Any single edit in progress is discarded. Calling it
// while already bulk editing keeps the current working copies.
func (s *Session) EnterBulkEdit() (int, error) {
	const op = "session.enter_bulk_edit"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return 0, err
	}
	if s.bulk != nil {
		return len(s.bulk), nil
	}
	s.editingID, s.draft = "", model.Event{}
	visible := s.visible()
	s.bulk = make(map[string]model.Event, len(visible))
	for _, v := range visible {
		s.bulk[v.Event.ID] = v.Event
	}
	return len(s.bulk), nil
}

// MutateBulk applies patch to the working copy of the event at index.
func (s *Session) MutateBulk(index int, patch model.EventPatch) (model.Event, error) {
	const op = "session.mutate_bulk"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return model.Event{}, err
	}
	if s.bulk == nil {
		return model.Event{}, errs.Wrap(op, errs.ErrConflict, errNotBulkEditing)
	}
	id, err := s.store.IDAt(index)
	if err != nil {
		return model.Event{}, err
	}
	working, ok := s.bulk[id]
	if !ok {
		return model.Event{}, errs.Wrap(op, errs.ErrConflict, errNotInBulk)
	}
	working = patch.Apply(working)
	s.bulk[id] = working
	return working, nil
}

// ExitBulkEdit commits every working copy in one step, then saves. If any
// copy is invalid nothing is committed and bulk edit stays active.
func (s *Session) ExitBulkEdit(ctx context.Context) error {
	const op = "session.exit_bulk_edit"
	s.mu.Lock()
	if err := s.checkOpen(op); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.bulk == nil {
		s.mu.Unlock()
		return errs.Wrap(op, errs.ErrConflict, errNotBulkEditing)
	}
	updates := make(map[int]model.Event, len(s.bulk))
	for id, e := range s.bulk {
		idx, err := s.store.IndexOf(id)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		updates[idx] = e
	}
	if err := s.store.ReplaceAll(updates); err != nil {
		s.mu.Unlock()
		return err
	}
	s.bulk = nil
	s.mu.Unlock()

	return s.save(ctx, "bulk_edit")
}

// DiscardBulkEdit abandons the edit session without committing.
func (s *Session) DiscardBulkEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulk = nil
}

// Bin soft-deletes the event at index, drops it from both selections and
// saves the remaining list. Binning a binned event does nothing.
func (s *Session) Bin(ctx context.Context, index int) error {
	const op = "session.bin"
	s.mu.Lock()
	if err := s.checkOpen(op); err != nil {
		s.mu.Unlock()
		return err
	}
	id, err := s.store.IDAt(index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.isBinned(id) {
		s.mu.Unlock()
		return nil
	}
	s.binned[id] = struct{}{}
	s.clipSel.Remove(id)
	s.batchSel.Remove(id)
	delete(s.bulk, id)
	if s.editingID == id {
		s.editingID, s.draft = "", model.Event{}
	}
	if s.currentID == id {
		s.currentID = ""
	}
	s.publishGauges()
	s.mu.Unlock()

	return s.save(ctx, "bin")
}

// Restore un-bins the event at index and saves. Restoring an event that is
// not binned does nothing.
func (s *Session) Restore(ctx context.Context, index int) error {
	const op = "session.restore"
	s.mu.Lock()
	if err := s.checkOpen(op); err != nil {
		s.mu.Unlock()
		return err
	}
	id, err := s.store.IDAt(index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.isBinned(id) {
		s.mu.Unlock()
		return nil
	}
	delete(s.binned, id)
	s.publishGauges()
	s.mu.Unlock()

	return s.save(ctx, "restore")
}

// BeginCreate enters event creation.
func (s *Session) BeginCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = true
}

// CancelCreate leaves event creation without adding anything.
func (s *Session) CancelCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false
}

// CreateEvent validates draft, inserts it and saves. It returns the
// committed event and its index. Every index held before this call may have
// shifted.
func (s *Session) CreateEvent(ctx context.Context, draft model.Event) (model.Event, int, error) {
	const op = "session.create_event"
	s.mu.Lock()
	if err := s.checkOpen(op); err != nil {
		s.mu.Unlock()
		return model.Event{}, -1, err
	}
	draft.ID = ""
	draft.Type = strings.TrimSpace(draft.Type)
	if err := draft.Validate(); err != nil {
		s.mu.Unlock()
		return model.Event{}, -1, errs.Wrap(op, errs.ErrValidation, err)
	}
	idx, err := s.store.Insert(draft)
	if err != nil {
		s.mu.Unlock()
		return model.Event{}, -1, err
	}
	committed, err := s.store.Get(idx)
	if err != nil {
		s.mu.Unlock()
		return model.Event{}, -1, err
	}
	s.creating = false
	s.mu.Unlock()

	s.logger.Info(ctx, "event created",
		logger.String("type", committed.Type),
		logger.Float64("timestamp", committed.Timestamp),
		logger.Int("index", idx),
	)
	return committed, idx, s.save(ctx, "create")
}

// SetPadding clamps and stores the trim window for the event at index, then
// restarts the autosave countdown. It returns the stored window.
func (s *Session) SetPadding(index, before, after int) (model.Padding, error) {
	const op = "session.set_padding"
	s.mu.Lock()
	if err := s.checkOpen(op); err != nil {
		s.mu.Unlock()
		return model.Padding{}, err
	}
	id, err := s.store.IDAt(index)
	if err != nil {
		s.mu.Unlock()
		return model.Padding{}, err
	}
	p := s.paddings.Set(id, before, after)
	s.mu.Unlock()

	s.coord.Schedule()
	return p, nil
}

// SetFilter replaces the filter configuration. It never touches the store;
// batch picks the new filter hides are dropped.
func (s *Session) SetFilter(cfg filter.Config) error {
	const op = "session.set_filter"
	if math.IsNaN(cfg.From) || cfg.From < 0 {
		return errs.Validation(op, "from must be a non-negative number")
	}
	if cfg.To != nil && (math.IsNaN(*cfg.To) || *cfg.To < cfg.From) {
		return errs.Validation(op, "to must not be before from")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return err
	}
	s.filter = cfg
	s.batchSel.Retain(func(id string) bool {
		idx, err := s.store.IndexOf(id)
		if err != nil {
			return false
		}
		e, err := s.store.Get(idx)
		return err == nil && filter.Match(e, cfg)
	})
	s.publishGauges()
	return nil
}

// SetCurrent marks the event at index as the one under the playhead. -1
// clears it.
func (s *Session) SetCurrent(index int) error {
	const op = "session.set_current"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return err
	}
	if index == -1 {
		s.currentID = ""
		return nil
	}
	id, err := s.store.IDAt(index)
	if err != nil {
		return err
	}
	if s.isBinned(id) {
		return errs.Wrap(op, errs.ErrConflict, errBinned)
	}
	s.currentID = id
	return nil
}

// Seek moves the current event to the last visible event at or before
// seconds and returns its index, or -1 when the playhead precedes them all.
func (s *Session) Seek(seconds float64) (int, error) {
	const op = "session.seek"
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return -1, errs.Validation(op, "playhead must be finite")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return -1, err
	}
	visible := s.visible()
	// visible is timestamp-ordered, so the answer is just before the first
	// event past the playhead.
	n := sort.Search(len(visible), func(i int) bool { return visible[i].Event.Timestamp > seconds })
	if n == 0 {
		s.currentID = ""
		return -1, nil
	}
	s.currentID = visible[n-1].Event.ID
	return visible[n-1].Index, nil
}

// EnterDownloadMode switches the screen into clip picking.
func (s *Session) EnterDownloadMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.download = true
}

// ExitDownloadMode leaves clip picking and drops the single-clip selection.
func (s *Session) ExitDownloadMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.download = false
	s.clipSel.Clear()
	s.publishGauges()
}

// ToggleSelection adds or removes the event at index in flow's set and
// reports whether it is selected afterwards. Adding past the cap is a no-op.
// Binned events cannot be selected; the batch flow only takes visible ones.
func (s *Session) ToggleSelection(flow Flow, index int) (bool, error) {
	const op = "session.toggle_selection"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return false, err
	}
	set, err := s.selectionFor(flow)
	if err != nil {
		return false, err
	}
	e, err := s.store.Get(index)
	if err != nil {
		return false, err
	}
	if !set.Contains(e.ID) {
		if s.isBinned(e.ID) {
			return false, errs.Wrap(op, errs.ErrConflict, errBinned)
		}
		if flow == FlowBatch && !filter.Match(e, s.filter) {
			return false, errs.Wrap(op, errs.ErrConflict, errNotVisible)
		}
	}
	selected := set.Toggle(e.ID)
	s.publishGauges()
	return selected, nil
}

// SelectAll adds every visible event to flow's set, in timeline order, until
// the cap. It returns how many were added.
func (s *Session) SelectAll(flow Flow) (int, error) {
	const op = "session.select_all"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(op); err != nil {
		return 0, err
	}
	set, err := s.selectionFor(flow)
	if err != nil {
		return 0, err
	}
	visible := s.visible()
	ids := make([]string, len(visible))
	for i, v := range visible {
		ids[i] = v.Event.ID
	}
	added := set.SelectAll(ids)
	s.publishGauges()
	return added, nil
}

// ClearSelection empties flow's set.
func (s *Session) ClearSelection(flow Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("session.clear_selection"); err != nil {
		return err
	}
	set, err := s.selectionFor(flow)
	if err != nil {
		return err
	}
	set.Clear()
	s.publishGauges()
	return nil
}

// Download renders flow's selection, in selection order, with current
// paddings. On success the rendered events leave the selection and download
// mode exits; picks made while the render ran are kept. On failure both are
// left as they were so the user can retry.
func (s *Session) Download(ctx context.Context, flow Flow) (clip.Artifact, error) {
	const op = "session.download"
	s.mu.Lock()
	if err := s.checkOpen(op); err != nil {
		s.mu.Unlock()
		return clip.Artifact{}, err
	}
	set, err := s.selectionFor(flow)
	if err != nil {
		s.mu.Unlock()
		return clip.Artifact{}, err
	}
	ids := set.Items()
	selected := make([]clip.Selected, 0, len(ids))
	for _, id := range ids {
		idx, err := s.store.IndexOf(id)
		if err != nil {
			s.mu.Unlock()
			return clip.Artifact{}, err
		}
		selected = append(selected, clip.Selected{Index: idx, Padding: s.paddings.Get(id)})
	}
	req, err := clip.Build(selected, s.store.All())
	if err != nil {
		s.mu.Unlock()
		return clip.Artifact{}, err
	}
	req.IncludeScoreline = s.scoreline
	s.mu.Unlock()

	art, err := s.renderer.CreateClip(ctx, s.gameID, req)
	if err != nil {
		metrics.RecordSessionOp("download", metrics.ResultError)
		if !errors.Is(err, errs.ErrRender) {
			err = errs.Wrap(op, errs.ErrRender, err)
		}
		return clip.Artifact{}, err
	}
	metrics.RecordSessionOp("download", metrics.ResultOK)

	s.mu.Lock()
	for _, id := range ids {
		set.Remove(id)
	}
	s.download = false
	s.publishGauges()
	s.mu.Unlock()

	s.logger.Info(ctx, "clip downloaded",
		logger.String("flow", string(flow)),
		logger.Int("segments", len(req.Entries)),
		logger.Float64("seconds", req.Duration()),
	)
	return art, nil
}

// Retry re-sends the full list, typically after a failed save.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	err := s.checkOpen("session.retry")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.save(ctx, "retry")
}

// View projects the current state for the presentation layer.
func (s *Session) View() types.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.store.All()
	view := types.View{
		GameID:            s.gameID,
		VisibleEvents:     []types.VisibleEvent{},
		Binned:            []types.BinnedEvent{},
		EventTypes:        filter.Types(events),
		Filter:            s.filter,
		CurrentEventIndex: -1,
		IsEditMode:        s.bulk != nil,
		EditingIndex:      -1,
		IsCreating:        s.creating,
		IsDownloadMode:    s.download,
		Paddings:          make(map[int]model.Padding, len(events)),
		PaddingMax:        s.paddings.Max(),
		Analysis:          s.analysis,
	}

	for i, e := range events {
		view.Paddings[i] = s.paddings.Get(e.ID)
		if s.isBinned(e.ID) {
			view.Binned = append(view.Binned, types.BinnedEvent{Index: i, Event: e})
		}
		if e.ID == s.currentID {
			view.CurrentEventIndex = i
		}
		if e.ID == s.editingID {
			view.EditingIndex = i
			draft := s.draft
			view.EditDraft = &draft
		}
	}

	for _, v := range filter.Visible(events, s.filter, s.isBinned) {
		row := types.VisibleEvent{
			Index:    v.Index,
			Event:    v.Event,
			Padding:  s.paddings.Get(v.Event.ID),
			Selected: s.clipSel.Contains(v.Event.ID),
			Batched:  s.batchSel.Contains(v.Event.ID),
		}
		if working, ok := s.bulk[v.Event.ID]; ok {
			row.Event = working
		}
		view.VisibleEvents = append(view.VisibleEvents, row)
	}

	view.Selection, view.SelectionSeconds = s.entries(s.clipSel)
	view.BatchSelection, view.BatchSeconds = s.entries(s.batchSel)
	view.Save = s.coord.Status()
	return view
}

// Snapshot returns the full non-binned list with paddings merged in, each
// tagged with its index in the full list so the server can rebuild order.
func (s *Session) Snapshot() []model.EventPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.store.All()
	out := make([]model.EventPayload, 0, len(events))
	for i, e := range events {
		if s.isBinned(e.ID) {
			continue
		}
		out = append(out, model.NewPayload(e, s.paddings.Get(e.ID), i))
	}
	return out
}

// Counts returns the number of events and how many are binned.
func (s *Session) Counts() (events, binned int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len(), len(s.binned)
}

// SaveStatus returns the persistence status.
func (s *Session) SaveStatus() types.SaveStatus {
	return s.coord.Status()
}

// Close flushes a pending autosave and stops the session's save worker.
// Every later call fails with errs.ErrClosed.
func (s *Session) Close(ctx context.Context) error {
	return s.close(ctx, true)
}

// discard closes a session that was never registered. Its per-game series
// belong to the registered session for the same game and are left alone.
func (s *Session) discard(ctx context.Context) error {
	return s.close(ctx, false)
}

func (s *Session) close(ctx context.Context, dropMetrics bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.coord.Close(ctx)
	if dropMetrics {
		metrics.DeleteGame(s.gameID)
		metrics.DeleteStore(s.gameID)
	}
	if err != nil {
		s.logger.Warn(ctx, "session closed with unsaved changes", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "session closed")
	return nil
}

func (s *Session) save(ctx context.Context, reason string) error {
	err := s.coord.Save(ctx, reason)
	if err != nil {
		metrics.RecordSessionOp(reason, metrics.ResultError)
		s.logger.Warn(ctx, "save failed, local changes kept", logger.String("op", reason), logger.Error(err))
		return err
	}
	metrics.RecordSessionOp(reason, metrics.ResultOK)
	return nil
}

func (s *Session) checkOpen(op string) error {
	if s.closed {
		return errs.New(op, errs.ErrClosed)
	}
	return nil
}

func (s *Session) isBinned(id string) bool {
	_, ok := s.binned[id]
	return ok
}

func (s *Session) visible() []filter.Indexed {
	return filter.Visible(s.store.All(), s.filter, s.isBinned)
}

func (s *Session) selectionFor(flow Flow) (*selection.Set, error) {
	switch flow {
	case FlowClip:
		return s.clipSel, nil
	case FlowBatch:
		return s.batchSel, nil
	default:
		return nil, errs.Wrap("session.selection", errs.ErrValidation, fmt.Errorf("unknown selection flow %q", flow))
	}
}

func (s *Session) entries(set *selection.Set) ([]types.SelectionEntry, int) {
	ids := set.Items()
	out := make([]types.SelectionEntry, 0, len(ids))
	for _, id := range ids {
		idx, err := s.store.IndexOf(id)
		if err != nil {
			continue
		}
		out = append(out, types.SelectionEntry{Index: idx, Padding: s.paddings.Get(id)})
	}
	return out, s.paddings.TotalSeconds(ids)
}

// republishGauges rewrites every per-game series from this session's state.
func (s *Session) republishGauges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.UpdateStoreEvents(s.gameID, s.store.Len())
	s.publishGauges()
}

func (s *Session) publishGauges() {
	metrics.UpdateBinned(s.gameID, len(s.binned))
	metrics.UpdateSelectionSize(s.gameID, string(FlowClip), s.clipSel.Len())
	metrics.UpdateSelectionSize(s.gameID, string(FlowBatch), s.batchSel.Len())
}

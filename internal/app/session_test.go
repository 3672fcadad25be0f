package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/matchreel/internal/adapters/gameapi"
	"github.com/okian/matchreel/internal/app"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/filter"
	"github.com/okian/matchreel/internal/domain/model"
	"github.com/okian/matchreel/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func openSession(games *fakeGames, r *fakeRenderer, delay time.Duration, events ...model.Event) *app.Session {
	s := app.NewSession("g1", games, r, app.WithSessionAutosaveDelay(delay))
	g := &gameapi.Game{ID: "g1"}
	for _, e := range events {
		g.Events = append(g.Events, gameapi.Event{Event: e})
	}
	So(s.Load(g), ShouldBeNil)
	return s
}

func visibleTypes(s *app.Session) []string {
	v := s.View()
	out := make([]string, len(v.VisibleEvents))
	for i, e := range v.VisibleEvents {
		out[i] = e.Event.Type
	}
	return out
}

func TestSession_CreateEvent(t *testing.T) {
	Convey("Given goal@10 and shot@5 loaded", t, func() {
		games := newFakeGames()
		s := openSession(games, &fakeRenderer{}, time.Hour, ev("goal", 10), ev("shot", 5))
		defer s.Close(context.Background())

		So(visibleTypes(s), ShouldResemble, []string{"shot", "goal"})

		Convey("Inserting foul@7 re-sorts and saves the full list", func() {
			created, idx, err := s.CreateEvent(context.Background(), ev(" foul ", 7))

			So(err, ShouldBeNil)
			So(idx, ShouldEqual, 1)
			So(created.Type, ShouldEqual, "foul")
			So(created.ID, ShouldNotBeEmpty)
			So(visibleTypes(s), ShouldResemble, []string{"shot", "foul", "goal"})
			So(games.saveCount(), ShouldEqual, 1)
			saved := games.lastSave()
			So(payloadTypes(saved), ShouldResemble, []string{"shot", "foul", "goal"})
			So(*saved[2].OriginalIndex, ShouldEqual, 2)
			So(s.View().IsCreating, ShouldBeFalse)
		})

		Convey("Padding stays with its event when an insert shifts positions", func() {
			_, err := s.SetPadding(1, 2, 9)
			So(err, ShouldBeNil)

			_, _, err = s.CreateEvent(context.Background(), ev("foul", 7))
			So(err, ShouldBeNil)

			v := s.View()
			So(v.Paddings[2], ShouldResemble, model.Padding{Before: 2, After: 9})
			So(v.Paddings[1], ShouldResemble, model.Padding{Before: 5, After: 3})
			So(games.lastSave()[2].AfterPadding, ShouldEqual, 9)
		})

		Convey("Malformed drafts are rejected before touching the store", func() {
			s.BeginCreate()
			_, _, err := s.CreateEvent(context.Background(), ev("  ", 3))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)

			_, _, err = s.CreateEvent(context.Background(), ev("goal", -1))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)

			So(len(s.View().VisibleEvents), ShouldEqual, 2)
			So(s.View().IsCreating, ShouldBeTrue)
			So(games.saveCount(), ShouldEqual, 0)
		})
	})
}

func TestSession_BinRestore(t *testing.T) {
	Convey("Given three events", t, func() {
		games := newFakeGames()
		s := openSession(games, &fakeRenderer{}, time.Hour, ev("shot", 5), ev("foul", 7), ev("goal", 10))
		defer s.Close(context.Background())
		before := s.View().VisibleEvents[0]

		Convey("Binning hides the event from every view but keeps its data", func() {
			So(s.Bin(context.Background(), 0), ShouldBeNil)

			So(visibleTypes(s), ShouldResemble, []string{"foul", "goal"})
			So(s.SetFilter(filter.Config{EventTypes: map[string]bool{"shot": true}}), ShouldBeNil)
			So(visibleTypes(s), ShouldBeEmpty)

			v := s.View()
			So(len(v.Binned), ShouldEqual, 1)
			So(v.Binned[0].Index, ShouldEqual, 0)
			events, binned := s.Counts()
			So(events, ShouldEqual, 3)
			So(binned, ShouldEqual, 1)

			So(payloadTypes(games.lastSave()), ShouldResemble, []string{"foul", "goal"})
			So(*games.lastSave()[0].OriginalIndex, ShouldEqual, 1)

			Convey("Binning it again is a no-op", func() {
				So(s.Bin(context.Background(), 0), ShouldBeNil)
				So(games.saveCount(), ShouldEqual, 1)
			})

			Convey("Restoring brings back exactly the same row", func() {
				So(s.SetFilter(filter.Default()), ShouldBeNil)
				So(s.Restore(context.Background(), 0), ShouldBeNil)

				So(s.View().VisibleEvents[0], ShouldResemble, before)
				So(games.saveCount(), ShouldEqual, 2)

				So(s.Restore(context.Background(), 0), ShouldBeNil)
				So(games.saveCount(), ShouldEqual, 2)
			})
		})

		Convey("Binning drops the event from both selections", func() {
			s.EnterDownloadMode()
			_, err := s.ToggleSelection(app.FlowClip, 0)
			So(err, ShouldBeNil)
			_, err = s.ToggleSelection(app.FlowBatch, 0)
			So(err, ShouldBeNil)

			So(s.Bin(context.Background(), 0), ShouldBeNil)
			v := s.View()
			So(v.Selection, ShouldBeEmpty)
			So(v.BatchSelection, ShouldBeEmpty)

			_, err = s.ToggleSelection(app.FlowClip, 0)
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
		})

		Convey("An unknown index is not found", func() {
			err := s.Bin(context.Background(), 9)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestSession_Padding(t *testing.T) {
	Convey("Given three events and a short quiet period", t, func() {
		games := newFakeGames()
		s := openSession(games, &fakeRenderer{}, 30*time.Millisecond, ev("shot", 5), ev("foul", 7), ev("goal", 10))
		defer s.Close(context.Background())

		Convey("Out-of-range windows are clamped", func() {
			p, err := s.SetPadding(2, 20, -3)
			So(err, ShouldBeNil)
			So(p, ShouldResemble, model.Padding{Before: 15, After: 0})
			v := s.View()
			So(v.Paddings[2], ShouldResemble, p)
			So(v.PaddingMax, ShouldEqual, 15)
		})

		Convey("Repeated changes within the quiet period save once with the final values", func() {
			for i := 0; i < 5; i++ {
				_, err := s.SetPadding(1, i, i+1)
				So(err, ShouldBeNil)
			}
			So(games.waitSaves(t, 1), ShouldEqual, 1)
			time.Sleep(100 * time.Millisecond)

			So(games.saveCount(), ShouldEqual, 1)
			saved := games.lastSave()
			So(saved[1].BeforePadding, ShouldEqual, 4)
			So(saved[1].AfterPadding, ShouldEqual, 5)
		})

		Convey("An immediate save carries pending padding and replaces the autosave", func() {
			_, err := s.SetPadding(1, 1, 1)
			So(err, ShouldBeNil)
			So(s.Bin(context.Background(), 0), ShouldBeNil)
			time.Sleep(100 * time.Millisecond)

			So(games.saveCount(), ShouldEqual, 1)
			So(games.lastSave()[0].BeforePadding, ShouldEqual, 1)
		})

		Convey("Persisted paddings seed the model on load", func() {
			g := &gameapi.Game{ID: "g1", Events: []gameapi.Event{
				{Event: ev("goal", 10), Padding: &model.Padding{Before: 1, After: 30}},
				{Event: ev("shot", 5)},
			}}
			So(s.Load(g), ShouldBeNil)

			v := s.View()
			So(v.Paddings[0], ShouldResemble, model.Padding{Before: 5, After: 3})
			So(v.Paddings[1], ShouldResemble, model.Padding{Before: 1, After: 15})
		})
	})
}

func TestSession_EditOne(t *testing.T) {
	Convey("Given two events", t, func() {
		games := newFakeGames()
		s := openSession(games, &fakeRenderer{}, time.Hour, ev("shot", 5), ev("goal", 10))
		defer s.Close(context.Background())

		Convey("Updating without an edit in progress is a conflict", func() {
			_, err := s.UpdateEditOne(model.EventPatch{Description: strPtr("x")})
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
			_, err = s.SaveEditOne(context.Background())
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
		})

		Convey("An edit is invisible until saved", func() {
			_, err := s.StartEditOne(0)
			So(err, ShouldBeNil)
			_, err = s.UpdateEditOne(model.EventPatch{Description: strPtr("header"), Timestamp: floatPtr(12)})
			So(err, ShouldBeNil)

			v := s.View()
			So(v.EditingIndex, ShouldEqual, 0)
			So(v.EditDraft.Description, ShouldEqual, "header")
			So(v.VisibleEvents[0].Event.Description, ShouldBeEmpty)

			Convey("Saving writes it back, re-sorts and persists", func() {
				idx, err := s.SaveEditOne(context.Background())
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, 1)
				So(visibleTypes(s), ShouldResemble, []string{"goal", "shot"})
				So(s.View().EditingIndex, ShouldEqual, -1)
				So(games.saveCount(), ShouldEqual, 1)
			})

			Convey("Cancelling discards it without saving", func() {
				s.CancelEditOne()
				So(s.View().EditDraft, ShouldBeNil)
				So(games.saveCount(), ShouldEqual, 0)
			})

			Convey("An invalid working copy keeps the edit open", func() {
				_, err := s.UpdateEditOne(model.EventPatch{Type: strPtr("")})
				So(err, ShouldBeNil)
				_, err = s.SaveEditOne(context.Background())
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
				So(s.View().EditingIndex, ShouldEqual, 0)
			})
		})

		Convey("A failed save keeps the local change", func() {
			games.setSaveErr(errors.New("boom"))
			_, err := s.StartEditOne(1)
			So(err, ShouldBeNil)
			_, err = s.UpdateEditOne(model.EventPatch{Player: strPtr("Kane")})
			So(err, ShouldBeNil)

			_, err = s.SaveEditOne(context.Background())
			So(errors.Is(err, errs.ErrPersistence), ShouldBeTrue)
			v := s.View()
			So(v.VisibleEvents[1].Event.Player, ShouldEqual, "Kane")
			So(v.Save.LastError, ShouldNotBeEmpty)

			Convey("And Retry sends it again", func() {
				games.setSaveErr(nil)
				So(s.Retry(context.Background()), ShouldBeNil)
				So(games.lastSave()[1].Player, ShouldEqual, "Kane")
				So(s.View().Save.LastError, ShouldBeEmpty)
			})
		})
	})
}

func TestSession_BulkEdit(t *testing.T) {
	Convey("Given three events", t, func() {
		games := newFakeGames()
		s := openSession(games, &fakeRenderer{}, time.Hour, ev("shot", 5), ev("foul", 7), ev("goal", 10))
		defer s.Close(context.Background())

		Convey("Bulk edit and single edit are never active together", func() {
			_, err := s.StartEditOne(0)
			So(err, ShouldBeNil)
			_, err = s.EnterBulkEdit()
			So(err, ShouldBeNil)
			v := s.View()
			So(v.IsEditMode, ShouldBeTrue)
			So(v.EditingIndex, ShouldEqual, -1)

			_, err = s.StartEditOne(1)
			So(err, ShouldBeNil)
			v = s.View()
			So(v.IsEditMode, ShouldBeFalse)
			So(v.EditingIndex, ShouldEqual, 1)
		})

		Convey("Only visible events are cloned", func() {
			So(s.SetFilter(filter.Config{EventTypes: map[string]bool{"shot": true, "goal": true}}), ShouldBeNil)
			n, err := s.EnterBulkEdit()
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			_, err = s.MutateBulk(1, model.EventPatch{Description: strPtr("x")})
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
		})

		Convey("Working copies render but the store is untouched until exit", func() {
			_, err := s.EnterBulkEdit()
			So(err, ShouldBeNil)
			_, err = s.MutateBulk(0, model.EventPatch{Description: strPtr("long range")})
			So(err, ShouldBeNil)
			_, err = s.MutateBulk(2, model.EventPatch{Team: strPtr("red")})
			So(err, ShouldBeNil)

			So(s.View().VisibleEvents[0].Event.Description, ShouldEqual, "long range")
			So(s.Snapshot()[0].Description, ShouldBeEmpty)

			Convey("Exit commits everything with one save", func() {
				So(s.ExitBulkEdit(context.Background()), ShouldBeNil)
				snap := s.Snapshot()
				So(snap[0].Description, ShouldEqual, "long range")
				So(snap[2].Team, ShouldEqual, "red")
				So(s.View().IsEditMode, ShouldBeFalse)
				So(games.saveCount(), ShouldEqual, 1)
			})

			Convey("One invalid copy commits nothing", func() {
				_, err := s.MutateBulk(1, model.EventPatch{Timestamp: floatPtr(-4)})
				So(err, ShouldBeNil)

				err = s.ExitBulkEdit(context.Background())
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
				So(s.Snapshot()[0].Description, ShouldBeEmpty)
				So(s.View().IsEditMode, ShouldBeTrue)
				So(games.saveCount(), ShouldEqual, 0)
			})

			Convey("Discard drops the working copies", func() {
				s.DiscardBulkEdit()
				So(s.View().VisibleEvents[0].Event.Description, ShouldBeEmpty)
				So(s.ExitBulkEdit(context.Background()), ShouldNotBeNil)
			})
		})
	})
}

func TestSession_Selection(t *testing.T) {
	Convey("Given seven events in download mode", t, func() {
		games := newFakeGames()
		r := &fakeRenderer{}
		s := openSession(games, r, time.Hour,
			ev("goal", 1), ev("shot", 2), ev("save", 3), ev("foul", 4),
			ev("corner", 5), ev("offside", 6), ev("turnover", 7))
		defer s.Close(context.Background())
		s.EnterDownloadMode()

		Convey("The single-clip selection never grows past its cap", func() {
			for i := 0; i < 7; i++ {
				_, err := s.ToggleSelection(app.FlowClip, i)
				So(err, ShouldBeNil)
			}
			So(len(s.View().Selection), ShouldEqual, 5)

			n, err := s.SelectAll(app.FlowClip)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("The batch selection is bounded by what is visible", func() {
			So(s.SetFilter(filter.Config{EventTypes: map[string]bool{"goal": true, "shot": true}}), ShouldBeNil)
			_, err := s.ToggleSelection(app.FlowBatch, 3)
			So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)

			n, err := s.SelectAll(app.FlowBatch)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			So(s.ClearSelection(app.FlowBatch), ShouldBeNil)
			So(s.View().BatchSelection, ShouldBeEmpty)
		})

		Convey("Narrowing the filter drops batch picks it hides", func() {
			n, err := s.SelectAll(app.FlowBatch)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 7)

			So(s.SetFilter(filter.Config{EventTypes: map[string]bool{"goal": true}}), ShouldBeNil)
			v := s.View()
			So(len(v.VisibleEvents), ShouldEqual, 1)
			So(v.BatchSelection, ShouldResemble, []types.SelectionEntry{{Index: 0, Padding: model.Padding{Before: 5, After: 3}}})

			_, err = s.Download(context.Background(), app.FlowBatch)
			So(err, ShouldBeNil)
			req := r.lastRequest()
			So(len(req.Entries), ShouldEqual, 1)
			So(req.Entries[0].Type, ShouldEqual, "goal")
		})

		Convey("Widening the filter again does not bring dropped picks back", func() {
			_, err := s.SelectAll(app.FlowBatch)
			So(err, ShouldBeNil)
			So(s.SetFilter(filter.Config{EventTypes: map[string]bool{"shot": true}}), ShouldBeNil)
			So(s.SetFilter(filter.Default()), ShouldBeNil)

			v := s.View()
			So(len(v.VisibleEvents), ShouldEqual, 7)
			So(len(v.BatchSelection), ShouldEqual, 1)
			So(v.BatchSelection[0].Index, ShouldEqual, 1)
		})

		Convey("A pick made while a render is in flight survives the download", func() {
			r.entered = make(chan struct{}, 1)
			r.gate = make(chan struct{})
			_, err := s.ToggleSelection(app.FlowClip, 0)
			So(err, ShouldBeNil)

			done := make(chan error, 1)
			go func() {
				_, err := s.Download(context.Background(), app.FlowClip)
				done <- err
			}()
			<-r.entered

			selected, err := s.ToggleSelection(app.FlowClip, 1)
			So(err, ShouldBeNil)
			So(selected, ShouldBeTrue)
			close(r.gate)
			So(<-done, ShouldBeNil)

			req := r.lastRequest()
			So(len(req.Entries), ShouldEqual, 1)
			So(req.Entries[0].Type, ShouldEqual, "goal")

			v := s.View()
			So(len(v.Selection), ShouldEqual, 1)
			So(v.Selection[0].Index, ShouldEqual, 1)
		})

		Convey("Download renders in selection order", func() {
			_, err := s.SetPadding(1, 5, 3)
			So(err, ShouldBeNil)
			_, err = s.SetPadding(0, 2, 2)
			So(err, ShouldBeNil)
			_, err = s.ToggleSelection(app.FlowClip, 1)
			So(err, ShouldBeNil)
			_, err = s.ToggleSelection(app.FlowClip, 0)
			So(err, ShouldBeNil)
			So(s.View().SelectionSeconds, ShouldEqual, 12)

			art, err := s.Download(context.Background(), app.FlowClip)
			So(err, ShouldBeNil)
			So(art.FileName, ShouldEqual, "highlights-g1.mp4")

			req := r.lastRequest()
			So(len(req.Entries), ShouldEqual, 2)
			So(req.Entries[0].Type, ShouldEqual, "shot")
			So(req.Entries[0].BeforePadding, ShouldEqual, 5)
			So(req.Entries[1].Type, ShouldEqual, "goal")
			So(req.Entries[1].AfterPadding, ShouldEqual, 2)

			v := s.View()
			So(v.Selection, ShouldBeEmpty)
			So(v.IsDownloadMode, ShouldBeFalse)
		})

		Convey("A failed render keeps the selection for a retry", func() {
			r.err = errors.New("transcoder down")
			_, err := s.ToggleSelection(app.FlowClip, 2)
			So(err, ShouldBeNil)

			_, err = s.Download(context.Background(), app.FlowClip)
			So(errors.Is(err, errs.ErrRender), ShouldBeTrue)
			v := s.View()
			So(len(v.Selection), ShouldEqual, 1)
			So(v.IsDownloadMode, ShouldBeTrue)
		})

		Convey("Downloading nothing is a validation error", func() {
			_, err := s.Download(context.Background(), app.FlowBatch)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("Leaving download mode drops the clip selection", func() {
			_, err := s.ToggleSelection(app.FlowClip, 0)
			So(err, ShouldBeNil)
			s.ExitDownloadMode()
			So(s.View().Selection, ShouldBeEmpty)
		})
	})
}

func TestSession_Seek(t *testing.T) {
	Convey("Given shot@5 foul@7 goal@10", t, func() {
		s := openSession(newFakeGames(), &fakeRenderer{}, time.Hour, ev("shot", 5), ev("foul", 7), ev("goal", 10))
		defer s.Close(context.Background())

		idx, err := s.Seek(8)
		So(err, ShouldBeNil)
		So(idx, ShouldEqual, 1)
		So(s.View().CurrentEventIndex, ShouldEqual, 1)

		idx, err = s.Seek(1)
		So(err, ShouldBeNil)
		So(idx, ShouldEqual, -1)
		So(s.View().CurrentEventIndex, ShouldEqual, -1)

		So(s.SetCurrent(2), ShouldBeNil)
		So(s.View().CurrentEventIndex, ShouldEqual, 2)
		So(errors.Is(s.SetCurrent(5), errs.ErrNotFound), ShouldBeTrue)
	})
}

func TestSession_Close(t *testing.T) {
	Convey("Given a session with an unsaved padding change", t, func() {
		games := newFakeGames()
		s := openSession(games, &fakeRenderer{}, time.Hour, ev("shot", 5))
		_, err := s.SetPadding(0, 9, 9)
		So(err, ShouldBeNil)

		Convey("Close flushes it and later calls fail", func() {
			So(s.Close(context.Background()), ShouldBeNil)
			So(games.saveCount(), ShouldEqual, 1)
			So(games.lastSave()[0].BeforePadding, ShouldEqual, 9)

			_, err := s.SetPadding(0, 1, 1)
			So(errors.Is(err, errs.ErrClosed), ShouldBeTrue)
			So(errors.Is(s.Bin(context.Background(), 0), errs.ErrClosed), ShouldBeTrue)
			So(errors.Is(s.ClearSelection(app.FlowClip), errs.ErrClosed), ShouldBeTrue)
			So(games.saveCount(), ShouldEqual, 1)
		})
	})
}

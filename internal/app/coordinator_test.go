package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/matchreel/internal/app"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func counterSnapshot() (app.SnapshotFunc, func(int)) {
	var mu sync.Mutex
	n := 0
	snap := func() []model.EventPayload {
		mu.Lock()
		defer mu.Unlock()
		return []model.EventPayload{model.NewPayload(model.Event{Type: "goal", Timestamp: float64(n)}, model.Padding{}, 0)}
	}
	set := func(v int) {
		mu.Lock()
		n = v
		mu.Unlock()
	}
	return snap, set
}

func TestCoordinator_ImmediateSave(t *testing.T) {
	Convey("Given a coordinator", t, func() {
		games := newFakeGames()
		snap, set := counterSnapshot()
		c := app.NewCoordinator("g1", games, snap, app.WithAutosaveDelay(time.Hour))
		defer c.Close(context.Background())

		Convey("Save sends the snapshot taken at send time", func() {
			set(42)
			err := c.Save(context.Background(), "bin")

			So(err, ShouldBeNil)
			So(games.saveCount(), ShouldEqual, 1)
			So(games.lastSave()[0].Timestamp, ShouldEqual, 42)
			st := c.Status()
			So(st.Saves, ShouldEqual, 1)
			So(st.Saving, ShouldBeFalse)
			So(st.LastSavedUnix, ShouldBeGreaterThan, 0)
		})

		Convey("A failed save is a persistence error and is recorded", func() {
			games.setSaveErr(errors.New("503"))
			err := c.Save(context.Background(), "bin")

			So(errors.Is(err, errs.ErrPersistence), ShouldBeTrue)
			st := c.Status()
			So(st.Failures, ShouldEqual, 1)
			So(st.LastError, ShouldContainSubstring, "503")

			Convey("And the next success clears the error", func() {
				games.setSaveErr(nil)
				So(c.Save(context.Background(), "retry"), ShouldBeNil)
				So(c.Status().LastError, ShouldBeEmpty)
			})
		})
	})
}

func TestCoordinator_CoalescesWhileInFlight(t *testing.T) {
	Convey("Given a save in flight", t, func() {
		games := newFakeGames()
		gate := make(chan struct{})
		games.setGate(gate)
		snap, _ := counterSnapshot()
		c := app.NewCoordinator("g1", games, snap, app.WithAutosaveDelay(time.Hour))
		defer c.Close(context.Background())

		first := make(chan error, 1)
		go func() { first <- c.Save(context.Background(), "first") }()
		// Let the worker take the first ticket.
		So(waitFor(func() bool { return c.Status().Saving }), ShouldBeTrue)

		Convey("Later triggers share a single follow-up round", func() {
			var wg sync.WaitGroup
			results := make([]error, 3)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = c.Save(context.Background(), "more")
				}(i)
			}
			So(waitFor(func() bool { return c.Status().Pending }), ShouldBeTrue)
			time.Sleep(50 * time.Millisecond)

			gate <- struct{}{}
			So(<-first, ShouldBeNil)
			gate <- struct{}{}
			wg.Wait()

			for _, err := range results {
				So(err, ShouldBeNil)
			}
			So(games.saveCount(), ShouldEqual, 2)
		})
	})
}

func TestCoordinator_Debounce(t *testing.T) {
	Convey("Given a coordinator with a short quiet period", t, func() {
		games := newFakeGames()
		snap, set := counterSnapshot()
		c := app.NewCoordinator("g1", games, snap, app.WithAutosaveDelay(30*time.Millisecond))
		defer c.Close(context.Background())

		Convey("A burst of schedules saves once with the final state", func() {
			for i := 1; i <= 5; i++ {
				set(i)
				c.Schedule()
				time.Sleep(5 * time.Millisecond)
			}
			So(games.waitSaves(t, 1), ShouldEqual, 1)
			time.Sleep(100 * time.Millisecond)
			So(games.saveCount(), ShouldEqual, 1)
			So(games.lastSave()[0].Timestamp, ShouldEqual, 5)
		})

		Convey("An immediate save supersedes the pending autosave", func() {
			c.Schedule()
			So(c.Save(context.Background(), "bin"), ShouldBeNil)
			time.Sleep(100 * time.Millisecond)
			So(games.saveCount(), ShouldEqual, 1)
		})
	})
}

func TestCoordinator_Close(t *testing.T) {
	Convey("Given a coordinator with a pending autosave", t, func() {
		games := newFakeGames()
		snap, _ := counterSnapshot()
		c := app.NewCoordinator("g1", games, snap, app.WithAutosaveDelay(time.Hour))
		c.Schedule()

		Convey("Close flushes it once and nothing fires afterwards", func() {
			So(c.Close(context.Background()), ShouldBeNil)
			So(games.saveCount(), ShouldEqual, 1)

			c.Schedule()
			err := c.Save(context.Background(), "late")
			So(errors.Is(err, errs.ErrClosed), ShouldBeTrue)
			So(games.saveCount(), ShouldEqual, 1)
			So(c.Close(context.Background()), ShouldBeNil)
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

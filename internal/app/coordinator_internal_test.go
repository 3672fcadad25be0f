package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/matchreel/internal/adapters/gameapi"
	"github.com/okian/matchreel/internal/domain/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRetryable(t *testing.T) {
	Convey("Save failures are classified for the failure log", t, func() {
		Convey("Game API server errors are retryable", func() {
			err := errs.Wrap("gameapi.save", errs.ErrPersistence, &gameapi.APIError{StatusCode: 503})
			So(retryable(err), ShouldBeTrue)
		})

		Convey("Game API client errors are not", func() {
			err := fmt.Errorf("save: %w", &gameapi.APIError{StatusCode: 422, Body: "bad events"})
			So(retryable(err), ShouldBeFalse)
		})

		Convey("Transport errors are", func() {
			So(retryable(errors.New("connection reset")), ShouldBeTrue)
		})
	})
}

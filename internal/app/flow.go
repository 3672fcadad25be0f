package app

import (
	"fmt"

	"github.com/okian/matchreel/internal/domain/errs"
)

// Flow names one of the two independent selection sets.
type Flow string

const (
	// FlowClip is the capped single-clip selection used in download mode.
	FlowClip Flow = "clip"
	// FlowBatch is the uncapped "download selected" set.
	FlowBatch Flow = "batch"
)

// ParseFlow validates a flow name.
func ParseFlow(s string) (Flow, error) {
	switch Flow(s) {
	case FlowClip, FlowBatch:
		return Flow(s), nil
	default:
		return "", errs.Wrap("app.parse_flow", errs.ErrValidation, fmt.Errorf("unknown selection flow %q", s))
	}
}

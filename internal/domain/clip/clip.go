// Package clip turns a selection of events and their trim windows into a
// render request for the external clip service.
package clip

import (
	"fmt"
	"math"

	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/model"
)

// Selected is one picked event: its original index and current padding.
type Selected struct {
	Index   int
	Padding model.Padding
}

// Entry is one segment of the stitched highlight video.
type Entry struct {
	Timestamp     float64 `json:"timestamp"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	BeforePadding int     `json:"beforePadding"`
	AfterPadding  int     `json:"afterPadding"`
}

// Request is the ordered list of segments. Order is splice order.
type Request struct {
	Entries          []Entry `json:"events"`
	IncludeScoreline bool    `json:"includeScoreline,omitempty"`
}

// Artifact is a rendered clip ready for download.
type Artifact struct {
	Data        []byte
	FileName    string
	ContentType string
}

// Build emits one entry per selected event in the caller's order (selection
// insertion order), not index or timestamp order.
func Build(selected []Selected, events []model.Event) (Request, error) {
	const op = "clip.build"
	if len(selected) == 0 {
		return Request{}, errs.Validation(op, "empty selection")
	}
	entries := make([]Entry, 0, len(selected))
	for _, s := range selected {
		if s.Index < 0 || s.Index >= len(events) {
			return Request{}, errs.Wrap(op, errs.ErrNotFound, fmt.Errorf("index %d", s.Index))
		}
		e := events[s.Index]
		entries = append(entries, Entry{
			Timestamp:     e.Timestamp,
			Type:          e.Type,
			Description:   e.Description,
			BeforePadding: s.Padding.Before,
			AfterPadding:  s.Padding.After,
		})
	}
	return Request{Entries: entries}, nil
}

// Window returns the source start and end seconds of an entry. The start
// never goes below the beginning of the match.
func (e Entry) Window() (start, end float64) {
	start = math.Max(0, e.Timestamp-float64(e.BeforePadding))
	end = e.Timestamp + float64(e.AfterPadding)
	return start, end
}

// Duration previews the length in seconds of the stitched clip.
func (r Request) Duration() float64 {
	total := 0.0
	for _, e := range r.Entries {
		start, end := e.Window()
		total += end - start
	}
	return total
}

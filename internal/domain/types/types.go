// Package types contains the read-only projections handed to the
// presentation layer.
package types

import (
	"encoding/json"

	"github.com/okian/matchreel/internal/domain/filter"
	"github.com/okian/matchreel/internal/domain/model"
)

// VisibleEvent is one row of the filtered, non-binned timeline. While bulk
// editing, Event is the working copy.
type VisibleEvent struct {
	Index    int           `json:"index"`
	Event    model.Event   `json:"event"`
	Padding  model.Padding `json:"padding"`
	Selected bool          `json:"selected"`
	Batched  bool          `json:"batched"`
}

// BinnedEvent is a soft-deleted event that can be restored.
type BinnedEvent struct {
	Index int         `json:"index"`
	Event model.Event `json:"event"`
}

// SelectionEntry is one member of a selection set, in insertion order.
type SelectionEntry struct {
	Index   int           `json:"index"`
	Padding model.Padding `json:"padding"`
}

// SaveStatus summarizes the persistence coordinator's state.
type SaveStatus struct {
	Saving        bool   `json:"saving"`
	Pending       bool   `json:"pending"`
	LastError     string `json:"lastSaveError,omitempty"`
	LastSavedUnix int64  `json:"lastSavedUnix,omitempty"`
	Saves         int64  `json:"saves"`
	Failures      int64  `json:"failures"`
}

// View is recomputed after every mutation.
type View struct {
	GameID            string                     `json:"gameId"`
	VisibleEvents     []VisibleEvent             `json:"visibleEvents"`
	Binned            []BinnedEvent              `json:"binned"`
	EventTypes        []string                   `json:"eventTypes"`
	Filter            filter.Config              `json:"filter"`
	CurrentEventIndex int                        `json:"currentEventIndex"`
	IsEditMode        bool                       `json:"isEditMode"`
	EditingIndex      int                        `json:"editingIndex"`
	EditDraft         *model.Event               `json:"editDraft,omitempty"`
	IsCreating        bool                       `json:"isCreating"`
	IsDownloadMode    bool                       `json:"isDownloadMode"`
	Selection         []SelectionEntry           `json:"selection"`
	SelectionSeconds  int                        `json:"selectionSeconds"`
	BatchSelection    []SelectionEntry           `json:"batchSelection"`
	BatchSeconds      int                        `json:"batchSeconds"`
	Paddings          map[int]model.Padding      `json:"paddings"`
	PaddingMax        int                        `json:"paddingMax"`
	Save              SaveStatus                 `json:"save"`
	Analysis          map[string]json.RawMessage `json:"analysis,omitempty"`
}

// Stats aggregates every open session.
type Stats struct {
	Sessions int   `json:"sessions"`
	Events   int   `json:"events"`
	Binned   int   `json:"binned"`
	Saves    int64 `json:"saves"`
	Failures int64 `json:"failures"`
}

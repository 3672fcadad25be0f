// Package model contains domain models passed between layers.
package model

import "strings"

// Well-known event types produced by the analysis pipeline. The set is open:
// upstream may introduce new tags at any time.
const (
	TypeGoal         = "goal"
	TypeShot         = "shot"
	TypeSave         = "save"
	TypeFoul         = "foul"
	TypeYellowCard   = "yellow_card"
	TypeRedCard      = "red_card"
	TypeCorner       = "corner"
	TypeSubstitution = "substitution"
	TypeTurnover     = "turnover"
	TypeOffside      = "offside"
)

// Event is one in-game occurrence on the match timeline.
type Event struct {
	ID          string  `json:"id,omitempty"`                      // stable identity, assigned by the store
	Type        string  `json:"type" validate:"required,notblank"` // open-ended tag, e.g. "goal"
	Timestamp   float64 `json:"timestamp" validate:"finite,gte=0"` // seconds from match start
	Team        string  `json:"team,omitempty"`                    // "red", "blue" or a team name
	Description string  `json:"description,omitempty"`
	Player      string  `json:"player,omitempty"`
}

// Padding is the before/after trim window, in whole seconds, around an event.
type Padding struct {
	Before int `json:"beforePadding"`
	After  int `json:"afterPadding"`
}

// Total returns the clip length contributed by this window.
func (p Padding) Total() int { return p.Before + p.After }

// EventPatch is a partial update. Nil fields are left untouched.
type EventPatch struct {
	Type        *string  `json:"type,omitempty"`
	Timestamp   *float64 `json:"timestamp,omitempty"`
	Team        *string  `json:"team,omitempty"`
	Description *string  `json:"description,omitempty"`
	Player      *string  `json:"player,omitempty"`
}

// Apply returns a copy of e with the patch applied. ID is never patched.
func (p EventPatch) Apply(e Event) Event {
	if p.Type != nil {
		e.Type = strings.TrimSpace(*p.Type)
	}
	if p.Timestamp != nil {
		e.Timestamp = *p.Timestamp
	}
	if p.Team != nil {
		e.Team = *p.Team
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Player != nil {
		e.Player = *p.Player
	}
	return e
}

// EventPayload is the wire shape the Game API stores: the event with its
// current padding merged in and its position in the saved list.
type EventPayload struct {
	Type          string  `json:"type"`
	Timestamp     float64 `json:"timestamp"`
	Team          string  `json:"team,omitempty"`
	Description   string  `json:"description,omitempty"`
	Player        string  `json:"player,omitempty"`
	BeforePadding int     `json:"beforePadding"`
	AfterPadding  int     `json:"afterPadding"`
	OriginalIndex *int    `json:"originalIndex,omitempty"`
}

// NewPayload merges an event and its padding into the wire shape.
func NewPayload(e Event, p Padding, originalIndex int) EventPayload {
	idx := originalIndex
	return EventPayload{
		Type:          e.Type,
		Timestamp:     e.Timestamp,
		Team:          e.Team,
		Description:   e.Description,
		Player:        e.Player,
		BeforePadding: p.Before,
		AfterPadding:  p.After,
		OriginalIndex: &idx,
	}
}

// Package filter derives the visible subset of the match timeline.
//
// Everything here is a pure view transform: inputs are never mutated and the
// output is always a subsequence of the input, in input order.
package filter

import (
	"sort"
	"strings"

	"github.com/okian/matchreel/internal/domain/model"
	"golang.org/x/text/cases"
)

// TeamBoth disables team filtering.
const TeamBoth = "both"

// Config is the user's current filter selection.
type Config struct {
	// EventTypes enables types by tag. A nil map enables every type; in a
	// non-nil map a missing tag counts as disabled.
	EventTypes map[string]bool `json:"eventTypes,omitempty"`
	// Team is TeamBoth (or empty) or a team identifier.
	Team string `json:"team,omitempty"`
	// From and To bound the timestamp, inclusive. A nil To means "until the
	// end of the match".
	From float64  `json:"from"`
	To   *float64 `json:"to,omitempty"`
	// Search matches description or player, case-insensitively.
	Search string `json:"search,omitempty"`
}

// Indexed pairs an event with its original index.
type Indexed struct {
	Index int         `json:"index"`
	Event model.Event `json:"event"`
}

// Default returns a configuration with no constraints.
func Default() Config {
	return Config{Team: TeamBoth}
}

// AllEnabled returns a type map with every given tag enabled.
func AllEnabled(types []string) map[string]bool {
	out := make(map[string]bool, len(types))
	for _, t := range types {
		out[t] = true
	}
	return out
}

// Types returns the distinct event types present, sorted.
func Types(events []model.Event) []string {
	seen := make(map[string]struct{})
	for _, e := range events {
		seen[e.Type] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Apply returns the events passing cfg, paired with their original index.
func Apply(events []model.Event, cfg Config) []Indexed {
	return Visible(events, cfg, nil)
}

// Visible is Apply with an extra exclusion predicate on event IDs, used to
// hide binned events regardless of cfg.
func Visible(events []model.Event, cfg Config, hidden func(id string) bool) []Indexed {
	m := newMatcher(cfg)
	out := make([]Indexed, 0, len(events))
	for i, e := range events {
		if hidden != nil && hidden(e.ID) {
			continue
		}
		if m.match(e) {
			out = append(out, Indexed{Index: i, Event: e})
		}
	}
	return out
}

// Match reports whether a single event passes cfg.
func Match(e model.Event, cfg Config) bool {
	return newMatcher(cfg).match(e)
}

type matcher struct {
	cfg    Config
	fold   cases.Caser
	team   string
	search string
}

func newMatcher(cfg Config) *matcher {
	fold := cases.Fold()
	m := &matcher{cfg: cfg, fold: fold}
	team := strings.TrimSpace(cfg.Team)
	if team != "" && !strings.EqualFold(team, TeamBoth) {
		m.team = fold.String(team)
	}
	m.search = fold.String(strings.TrimSpace(cfg.Search))
	return m
}

func (m *matcher) match(e model.Event) bool {
	if m.cfg.EventTypes != nil && !m.cfg.EventTypes[e.Type] {
		return false
	}
	if m.team != "" {
		team := m.fold.String(strings.TrimSpace(e.Team))
		if team == "" || !(strings.Contains(team, m.team) || strings.Contains(m.team, team)) {
			return false
		}
	}
	if e.Timestamp < m.cfg.From {
		return false
	}
	if m.cfg.To != nil && e.Timestamp > *m.cfg.To {
		return false
	}
	if m.search != "" {
		if !strings.Contains(m.fold.String(e.Description), m.search) &&
			!strings.Contains(m.fold.String(e.Player), m.search) {
			return false
		}
	}
	return true
}

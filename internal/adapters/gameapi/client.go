// Package gameapi talks to the Game API: it reads a game's analysis and
// replaces the game's stored event list.
package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/model"
	"github.com/okian/matchreel/pkg/logger"
	"github.com/okian/matchreel/pkg/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4096
)

// APIError is a non-2xx answer from the Game API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("game api: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors. Client errors are permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// Event is a stored event as read back from the Game API. Padding is set
// only when the stored event carried both padding fields.
type Event struct {
	model.Event
	Padding *model.Padding
}

// Game is the analysis document for one game. Fields other than the event
// list are kept verbatim.
type Game struct {
	ID     string
	Events []Event
	Extra  map[string]json.RawMessage
}

// Client is an HTTP client for the Game API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a Game API client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Get().Named("gameapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetGame fetches a game. An unknown game is errs.ErrNotFound.
func (c *Client) GetGame(ctx context.Context, gameID string) (*Game, error) {
	const op = "gameapi.get_game"

	req, err := c.newRequest(ctx, http.MethodGet, c.gameURL(gameID), nil)
	if err != nil {
		return nil, errs.Wrap(op, errs.ErrPersistence, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("gameapi", "transport")
		return nil, errs.Wrap(op, errs.ErrPersistence, fmt.Errorf("http request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.Wrap(op, errs.ErrNotFound, readAPIError(resp))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordErrorByComponent("gameapi", "status")
		return nil, errs.Wrap(op, errs.ErrPersistence, readAPIError(resp))
	}

	game, err := decodeGame(resp.Body)
	if err != nil {
		metrics.RecordErrorByComponent("gameapi", "decode")
		return nil, errs.Wrap(op, errs.ErrPersistence, err)
	}
	game.ID = gameID

	c.logger.Debug(ctx, "game loaded",
		logger.String("game", gameID),
		logger.Int("events", len(game.Events)),
	)
	return game, nil
}

// SaveEvents replaces the game's stored events with events.
func (c *Client) SaveEvents(ctx context.Context, gameID string, events []model.EventPayload) error {
	const op = "gameapi.save_events"

	if events == nil {
		events = []model.EventPayload{}
	}
	body, err := json.Marshal(struct {
		Events []model.EventPayload `json:"events"`
	}{Events: events})
	if err != nil {
		return errs.Wrap(op, errs.ErrPersistence, fmt.Errorf("marshal events: %w", err))
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.gameURL(gameID)+"/events", bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(op, errs.ErrPersistence, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("gameapi", "transport")
		return errs.Wrap(op, errs.ErrPersistence, fmt.Errorf("http request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordErrorByComponent("gameapi", "status")
		return errs.Wrap(op, errs.ErrPersistence, readAPIError(resp))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	c.logger.Debug(ctx, "events saved",
		logger.String("game", gameID),
		logger.Int("events", len(events)),
		logger.Int("body_bytes", len(body)),
	)
	return nil
}

func (c *Client) gameURL(gameID string) string {
	return c.baseURL + "/games/" + url.PathEscape(gameID)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func readAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// wireEvent is the stored event shape. Padding fields are pointers so an
// event saved before padding existed can be told apart from one saved at 0.
type wireEvent struct {
	ID            string  `json:"id,omitempty"`
	Type          string  `json:"type"`
	Timestamp     float64 `json:"timestamp"`
	Team          string  `json:"team,omitempty"`
	Description   string  `json:"description,omitempty"`
	Player        string  `json:"player,omitempty"`
	BeforePadding *int    `json:"beforePadding,omitempty"`
	AfterPadding  *int    `json:"afterPadding,omitempty"`
}

func (w wireEvent) toEvent() Event {
	e := Event{Event: model.Event{
		ID:          w.ID,
		Type:        w.Type,
		Timestamp:   w.Timestamp,
		Team:        w.Team,
		Description: w.Description,
		Player:      w.Player,
	}}
	if w.BeforePadding != nil && w.AfterPadding != nil {
		e.Padding = &model.Padding{Before: *w.BeforePadding, After: *w.AfterPadding}
	}
	return e
}

// decodeGame accepts "events" either as an array or as {"events": [...]}.
func decodeGame(r io.Reader) (*Game, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}

	game := &Game{Extra: make(map[string]json.RawMessage, len(doc))}
	for k, v := range doc {
		if k != "events" {
			game.Extra[k] = v
		}
	}

	raw, ok := doc["events"]
	if !ok || isNull(raw) {
		return game, nil
	}
	wire, err := decodeEventList(raw)
	if err != nil {
		return nil, err
	}
	game.Events = make([]Event, 0, len(wire))
	for _, w := range wire {
		game.Events = append(game.Events, w.toEvent())
	}
	return game, nil
}

func decodeEventList(raw json.RawMessage) ([]wireEvent, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var list []wireEvent
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		return list, nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var nested struct {
			Events []wireEvent `json:"events"`
		}
		if err := json.Unmarshal(trimmed, &nested); err != nil {
			return nil, fmt.Errorf("decode nested events: %w", err)
		}
		return nested.Events, nil
	default:
		return nil, errors.New("decode events: expected array or object")
	}
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

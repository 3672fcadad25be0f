// Package render dispatches clip requests to the external render service.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/okian/matchreel/internal/domain/clip"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/pkg/logger"
	"github.com/okian/matchreel/pkg/metrics"
)

const (
	defaultTimeout  = 5 * time.Minute
	defaultMaxBytes = 2 << 30
	maxErrorBody    = 4096
)

// ServiceError is a non-2xx answer from the render service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("render service: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the render service.
type Client struct {
	baseURL    string
	token      string
	maxBytes   int64
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a render client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxBytes:   defaultMaxBytes,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Get().Named("render"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createClipBody struct {
	GameID           string       `json:"gameId"`
	Events           []clip.Entry `json:"events"`
	IncludeScoreline bool         `json:"includeScoreline"`
}

// CreateClip renders req and returns the artifact. Every failure is
// errs.ErrRender so the caller keeps its selection.
func (c *Client) CreateClip(ctx context.Context, gameID string, req clip.Request) (clip.Artifact, error) {
	const op = "render.create_clip"
	start := time.Now()

	art, err := c.createClip(ctx, gameID, req)
	metrics.RecordRenderDuration(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordRender(metrics.ResultError)
		metrics.RecordErrorByComponent("render", "dispatch")
		c.logger.Warn(ctx, "clip render failed",
			logger.String("game", gameID),
			logger.Int("segments", len(req.Entries)),
			logger.Error(err),
		)
		return clip.Artifact{}, errs.Wrap(op, errs.ErrRender, err)
	}

	metrics.RecordRender(metrics.ResultOK)
	metrics.RecordRenderBytes(len(art.Data))
	c.logger.Info(ctx, "clip rendered",
		logger.String("game", gameID),
		logger.Int("segments", len(req.Entries)),
		logger.String("file", art.FileName),
		logger.Int("bytes", len(art.Data)),
	)
	return art, nil
}

func (c *Client) createClip(ctx context.Context, gameID string, req clip.Request) (clip.Artifact, error) {
	body, err := json.Marshal(createClipBody{
		GameID:           gameID,
		Events:           req.Entries,
		IncludeScoreline: req.IncludeScoreline,
	})
	if err != nil {
		return clip.Artifact{}, fmt.Errorf("marshal clip request: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/clips", bytes.NewReader(body))
	if err != nil {
		return clip.Artifact{}, fmt.Errorf("create request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		return clip.Artifact{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return clip.Artifact{}, readServiceError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return clip.Artifact{}, fmt.Errorf("read artifact: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return clip.Artifact{}, fmt.Errorf("artifact exceeds %d bytes", c.maxBytes)
	}
	if len(data) == 0 {
		return clip.Artifact{}, fmt.Errorf("empty artifact")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return clip.Artifact{
		Data:        data,
		FileName:    fileName(resp.Header.Get("Content-Disposition"), gameID),
		ContentType: contentType,
	}, nil
}

// FallbackFileName is the download name used when the service suggests none.
func FallbackFileName(gameID string) string {
	return "highlights-" + gameID + ".mp4"
}

func fileName(disposition, gameID string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := path.Base(strings.ReplaceAll(params["filename"], "\\", "/")); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	return FallbackFileName(gameID)
}

// readServiceError extracts {"error": ...} or {"message": ...}, falling back
// to the raw body.
func readServiceError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &payload) == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ServiceError{StatusCode: resp.StatusCode, Message: msg}
}

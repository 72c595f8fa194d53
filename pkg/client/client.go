// Package client is a typed HTTP client for the moodtrace worker API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/affectlab/moodtrace/pkg/models"
)

// DefaultTimeout bounds individual API calls. Event streams are exempt.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the worker.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("worker: %s (status %d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the worker.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsConflict reports whether err is a 409 from the worker.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsInvalid reports whether err is a 400 from the worker.
func IsInvalid(err error) bool { return hasStatus(err, http.StatusBadRequest) }

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Health mirrors the worker's health payload.
type Health struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	Sessions        int    `json:"sessions"`
	SSEClients      int    `json:"sse_clients"`
	ArchiveHealthy  bool   `json:"archive_healthy"`
	ClassifierReady bool   `json:"classifier_ready"`
}

// ArchivedSession mirrors an archive listing row.
type ArchivedSession struct {
	SessionID   string                `json:"session_id"`
	StartTime   time.Time             `json:"start_time"`
	EndTime     time.Time             `json:"end_time"`
	TotalFrames int                   `json:"total_frames"`
	ArchivedAt  time.Time             `json:"archived_at"`
	Results     models.SessionResults `json:"results"`
}

// Event is one entry from the worker's live event stream.
type Event struct {
	Type       string                 `json:"type"`
	SessionID  string                 `json:"session_id,omitempty"`
	QuestionID string                 `json:"question_id,omitempty"`
	Frame      *models.Frame          `json:"frame,omitempty"`
	Results    *models.SessionResults `json:"results,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Client calls the worker's REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a client for the worker at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// NewLocal creates a client for a worker on the local machine.
func NewLocal(port int) *Client {
	return New(fmt.Sprintf("http://127.0.0.1:%d", port), DefaultTimeout)
}

// StartSession creates a new active session.
func (c *Client) StartSession(ctx context.Context) (models.SessionInfo, error) {
	var info models.SessionInfo
	err := c.do(ctx, http.MethodPost, "/api/sessions", nil, "", &info)
	return info, err
}

// ListSessions lists every session the worker holds, in creation order.
func (c *Client) ListSessions(ctx context.Context) ([]models.SessionInfo, error) {
	var resp struct {
		Sessions []models.SessionInfo `json:"sessions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, "", &resp)
	return resp.Sessions, err
}

// RecordFrame records a pre-classified frame under the given question.
func (c *Client) RecordFrame(ctx context.Context, sessionID, questionID string, emotion models.EmotionLabel, confidence float64) (models.Frame, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"question_id": questionID,
		"emotion":     emotion,
		"confidence":  confidence,
	})
	if err != nil {
		return models.Frame{}, err
	}

	var resp struct {
		models.QuestionFrame
	}
	err = c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/frames",
		bytes.NewReader(payload), "application/json", &resp)
	return resp.Frame, err
}

// RecordImage uploads an image for classification and records the result.
func (c *Client) RecordImage(ctx context.Context, sessionID, questionID, filename string, image io.Reader) (models.Frame, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("question_id", questionID); err != nil {
		return models.Frame{}, err
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return models.Frame{}, err
	}
	if _, err := io.Copy(fw, image); err != nil {
		return models.Frame{}, err
	}
	if err := mw.Close(); err != nil {
		return models.Frame{}, err
	}

	var resp struct {
		models.QuestionFrame
	}
	err = c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/frames",
		&buf, mw.FormDataContentType(), &resp)
	return resp.Frame, err
}

// EndSession completes a session and returns its frozen results.
func (c *Client) EndSession(ctx context.Context, sessionID string) (models.SessionResults, error) {
	var results models.SessionResults
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/end", nil, "", &results)
	return results, err
}

// ClearSession removes a session and all of its data.
func (c *Client) ClearSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, "", nil)
}

// SessionResults fetches the aggregate summary for a session.
func (c *Client) SessionResults(ctx context.Context, sessionID string) (models.SessionResults, error) {
	var results models.SessionResults
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/results", nil, "", &results)
	return results, err
}

// QuestionResults fetches the summary for one question within a session.
func (c *Client) QuestionResults(ctx context.Context, sessionID, questionID string) (models.QuestionResults, error) {
	var results models.QuestionResults
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/questions/"+questionID+"/results", nil, "", &results)
	return results, err
}

// ListQuestions fetches per-question summaries in first-frame order.
func (c *Client) ListQuestions(ctx context.Context, sessionID string) ([]models.QuestionResults, error) {
	var resp struct {
		Questions []models.QuestionResults `json:"questions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/questions", nil, "", &resp)
	return resp.Questions, err
}

// ArchivedSessions lists recently archived sessions, newest first.
func (c *Client) ArchivedSessions(ctx context.Context, limit int) ([]ArchivedSession, error) {
	path := "/api/archive/sessions"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var resp struct {
		Sessions []ArchivedSession `json:"sessions"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, "", &resp)
	return resp.Sessions, err
}

// Health fetches the worker's health payload.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	err := c.do(ctx, http.MethodGet, "/health", nil, "", &health)
	return health, err
}

// Healthy reports whether the worker answers its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	health, err := c.Health(ctx)
	return err == nil && health.Status == "ok"
}

// Watch streams live worker events to fn until ctx is canceled or the
// stream closes. fn runs on the calling goroutine.
func (c *Client) Watch(ctx context.Context, fn func(Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives any per-call timeout; its lifetime is the context's.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		if ev.Type == "connected" {
			continue
		}
		fn(ev)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	msg := resp.Status
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// Package classify calls an external emotion classification service over
// HTTP. The service receives a captured frame image and answers with the
// detected emotion and its confidence.
package classify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/affectlab/moodtrace/pkg/models"
)

// Result is one classification outcome.
type Result struct {
	Emotion    models.EmotionLabel `json:"emotion"`
	Confidence float64             `json:"confidence"`
}

type classifyResponse struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Client talks to one classifier service instance.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New builds a client for the service at baseURL. A non-positive timeout
// falls back to 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Classify uploads one frame image and returns the detected emotion. The
// service's label is canonicalized; an unknown label or an out-of-range
// confidence is an error.
func (c *Client) Classify(ctx context.Context, filename string, image io.Reader) (Result, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return Result{}, err
	}
	if _, err := io.Copy(fw, image); err != nil {
		return Result{}, err
	}
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("classify %s: %s", resp.Status, string(msg))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("classify decode: %w", err)
	}

	emotion, err := models.ParseEmotion(out.Emotion)
	if err != nil {
		return Result{}, fmt.Errorf("classify response: %w", err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return Result{}, fmt.Errorf("classify response: confidence %v out of range", out.Confidence)
	}
	return Result{Emotion: emotion, Confidence: out.Confidence}, nil
}

// Healthy reports whether the classifier service answers its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

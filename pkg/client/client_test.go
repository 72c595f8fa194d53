package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affectlab/moodtrace/internal/config"
	"github.com/affectlab/moodtrace/internal/service"
	"github.com/affectlab/moodtrace/internal/store"
	"github.com/affectlab/moodtrace/internal/worker"
	"github.com/affectlab/moodtrace/internal/worker/sse"
	"github.com/affectlab/moodtrace/pkg/models"
	"github.com/affectlab/moodtrace/pkg/stats"
)

// testServer runs a real worker behind httptest and returns a client for it.
func testServer(t *testing.T) (*Client, *sse.Broadcaster) {
	t.Helper()

	broadcaster := sse.NewBroadcaster()
	sessions, err := service.New(store.New(stats.DefaultPolicy()), service.WithEvents(broadcaster))
	require.NoError(t, err)
	svc := worker.New("client-test", config.Default(), sessions, broadcaster, nil)

	srv := httptest.NewServer(svc.Router())
	t.Cleanup(srv.Close)

	return New(srv.URL, 5*time.Second), broadcaster
}

func TestNewLocal(t *testing.T) {
	c := NewLocal(12345)
	assert.Equal(t, "http://127.0.0.1:12345", c.baseURL)
}

func TestSessionLifecycle(t *testing.T) {
	c, _ := testServer(t)
	ctx := context.Background()

	info, err := c.StartSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, info.SessionID)
	assert.Equal(t, models.SessionStatusActive, info.Status)

	sessions, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, info.SessionID, sessions[0].SessionID)

	frame, err := c.RecordFrame(ctx, info.SessionID, "q1", models.EmotionHappy, 0.9)
	require.NoError(t, err)
	assert.NotEmpty(t, frame.FrameID)
	assert.Equal(t, models.EmotionHappy, frame.Emotion)

	_, err = c.RecordFrame(ctx, info.SessionID, "q2", models.EmotionNeutral, 0.6)
	require.NoError(t, err)

	results, err := c.SessionResults(ctx, info.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, results.TotalFrames)
	assert.Equal(t, 2, results.TotalQuestions)

	qr, err := c.QuestionResults(ctx, info.SessionID, "q1")
	require.NoError(t, err)
	assert.Equal(t, models.EmotionHappy, qr.DominantEmotion)

	questions, err := c.ListQuestions(ctx, info.SessionID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "q1", questions[0].QuestionID)

	final, err := c.EndSession(ctx, info.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, final.Status)
	require.NotNil(t, final.EndTime)

	require.NoError(t, c.ClearSession(ctx, info.SessionID))

	_, err = c.SessionResults(ctx, info.SessionID)
	assert.True(t, IsNotFound(err))
}

func TestErrorMapping(t *testing.T) {
	c, _ := testServer(t)
	ctx := context.Background()

	_, err := c.SessionResults(ctx, "missing")
	assert.True(t, IsNotFound(err))
	assert.ErrorContains(t, err, "missing")

	assert.True(t, IsNotFound(c.ClearSession(ctx, "missing")))

	info, err := c.StartSession(ctx)
	require.NoError(t, err)

	_, err = c.RecordFrame(ctx, info.SessionID, "q1", models.EmotionLabel("bored"), 0.5)
	assert.True(t, IsInvalid(err))

	_, err = c.EndSession(ctx, info.SessionID)
	require.NoError(t, err)
	_, err = c.EndSession(ctx, info.SessionID)
	assert.True(t, IsConflict(err))
}

func TestRecordImageNoClassifier(t *testing.T) {
	c, _ := testServer(t)
	ctx := context.Background()

	info, err := c.StartSession(ctx)
	require.NoError(t, err)

	_, err = c.RecordImage(ctx, info.SessionID, "q1", "face.png", strings.NewReader("pixels"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.StatusCode)
}

func TestHealth(t *testing.T) {
	c, _ := testServer(t)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "client-test", health.Version)
	assert.True(t, c.Healthy(ctx))
}

func TestWatch(t *testing.T) {
	c, broadcaster := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(ev Event) { events <- ev })
	}()

	// Wait for the stream to register before generating events.
	require.Eventually(t, func() bool { return broadcaster.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	info, err := c.StartSession(ctx)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, "session.started", ev.Type)
		assert.Equal(t, info.SessionID, ev.SessionID)
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}

package service

import (
	"time"

	"github.com/affectlab/moodtrace/pkg/models"
)

// Event types broadcast to subscribers.
const (
	EventSessionStarted = "session.started"
	EventFrameRecorded  = "frame.recorded"
	EventSessionEnded   = "session.ended"
	EventSessionCleared = "session.cleared"
)

// Event is a lifecycle notification pushed to event subscribers. Frame is
// set for frame.recorded, Results for session.ended.
type Event struct {
	Type       string                 `json:"type"`
	SessionID  string                 `json:"session_id,omitempty"`
	QuestionID string                 `json:"question_id,omitempty"`
	Frame      *models.Frame          `json:"frame,omitempty"`
	Results    *models.SessionResults `json:"results,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// EventSink receives lifecycle events for fan-out to subscribers.
type EventSink interface {
	Broadcast(data interface{})
}

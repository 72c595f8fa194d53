package models

import "time"

// SessionStatus represents the lifecycle state of an analysis session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// SessionInfo is the listing row for a session. EndTime is nil while the
// session is still active.
type SessionInfo struct {
	SessionID   string        `json:"session_id"`
	Status      SessionStatus `json:"status"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	TotalFrames int           `json:"total_frames"`
}

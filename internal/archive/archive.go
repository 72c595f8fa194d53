// Package archive persists completed sessions to pluggable backends.
//
// Archival is best effort: the in-memory store stays authoritative, and a
// failed archive never affects the session lifecycle. Callers log failures
// and move on.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/affectlab/moodtrace/pkg/models"
)

// SessionRecord is the archival payload for one completed session: the
// frozen final results plus the flattened frame log.
type SessionRecord struct {
	Results models.SessionResults
	Frames  []models.QuestionFrame
}

// ArchivedSession is a listing row read back from a backend.
type ArchivedSession struct {
	SessionID   string                `json:"session_id"`
	StartTime   time.Time             `json:"start_time"`
	EndTime     time.Time             `json:"end_time"`
	TotalFrames int                   `json:"total_frames"`
	ArchivedAt  time.Time             `json:"archived_at"`
	Results     models.SessionResults `json:"results"`
}

// Archiver stores completed sessions outside the in-memory store.
// Re-archiving the same session is idempotent in every backend.
type Archiver interface {
	ArchiveSession(ctx context.Context, rec SessionRecord) error
	RecentSessions(ctx context.Context, limit int) ([]ArchivedSession, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend     string // "none", "sqlite", "postgres" or "redis"
	SQLitePath  string
	PostgresDSN string
	RedisAddr   string
}

// New constructs the configured backend. An empty or "none" backend yields
// the discarding Noop archiver.
func New(cfg Config) (Archiver, error) {
	switch cfg.Backend {
	case "", "none":
		return Noop{}, nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "postgres":
		return NewPostgres(cfg.PostgresDSN)
	case "redis":
		return NewRedis(cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

// Noop discards every record. Used when no backend is configured.
type Noop struct{}

func (Noop) ArchiveSession(context.Context, SessionRecord) error { return nil }

func (Noop) RecentSessions(context.Context, int) ([]ArchivedSession, error) { return nil, nil }

func (Noop) Ping(context.Context) error { return nil }

func (Noop) Close() error { return nil }

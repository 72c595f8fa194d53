package archive

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/affectlab/moodtrace/pkg/models"
)

// SQLite archives sessions into a local SQLite database. Prepared
// statements are cached per query text.
type SQLite struct {
	db    *sql.DB
	mu    sync.RWMutex
	stmts map[string]*sql.Stmt
}

// NewSQLite opens (creating if needed) the database at path and ensures
// the archive schema exists.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite archive path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	s := &SQLite{db: db, stmts: make(map[string]*sql.Stmt)}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS archived_sessions (
	session_id        TEXT PRIMARY KEY,
	started_at        TEXT NOT NULL,
	started_at_epoch  INTEGER NOT NULL,
	ended_at          TEXT NOT NULL,
	ended_at_epoch    INTEGER NOT NULL,
	total_frames      INTEGER NOT NULL,
	total_questions   INTEGER NOT NULL,
	dominant_emotion  TEXT,
	results_json      TEXT NOT NULL,
	archived_at       TEXT NOT NULL,
	archived_at_epoch INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archived_sessions_ended
	ON archived_sessions(ended_at_epoch DESC);

CREATE TABLE IF NOT EXISTS archived_frames (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	question_id TEXT NOT NULL,
	frame_id    TEXT NOT NULL,
	emotion     TEXT NOT NULL,
	confidence  REAL NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archived_frames_session
	ON archived_frames(session_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create archive schema: %w", err)
	}
	return nil
}

// getStmt returns a cached prepared statement for the query, preparing it
// on first use.
func (s *SQLite) getStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	s.mu.RLock()
	stmt, ok := s.stmts[query]
	s.mu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	s.stmts[query] = stmt
	return stmt, nil
}

// ArchiveSession writes the session row and its frame log in one
// transaction. Re-archiving replaces the previous copy.
func (s *SQLite) ArchiveSession(ctx context.Context, rec SessionRecord) error {
	if rec.Results.SessionID == "" {
		return fmt.Errorf("session record has no session id")
	}

	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("marshal session results: %w", err)
	}

	started := rec.Results.StartTime.UTC()
	ended := time.Now().UTC()
	if rec.Results.EndTime != nil {
		ended = rec.Results.EndTime.UTC()
	}
	archivedAt := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	const insertSession = `
		INSERT OR REPLACE INTO archived_sessions (
			session_id, started_at, started_at_epoch, ended_at, ended_at_epoch,
			total_frames, total_questions, dominant_emotion, results_json,
			archived_at, archived_at_epoch
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insertSession,
		rec.Results.SessionID,
		started.Format(time.RFC3339Nano), started.UnixMilli(),
		ended.Format(time.RFC3339Nano), ended.UnixMilli(),
		rec.Results.TotalFrames,
		rec.Results.TotalQuestions,
		nullString(string(rec.Results.DominantEmotion)),
		string(resultsJSON),
		archivedAt.Format(time.RFC3339Nano), archivedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert archived session: %w", err)
	}

	const deleteFrames = `DELETE FROM archived_frames WHERE session_id = ?`
	if _, err := tx.ExecContext(ctx, deleteFrames, rec.Results.SessionID); err != nil {
		return fmt.Errorf("clear archived frames: %w", err)
	}

	const insertFrame = `
		INSERT INTO archived_frames (
			session_id, question_id, frame_id, emotion, confidence, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?)`
	for _, frame := range rec.Frames {
		_, err := tx.ExecContext(ctx, insertFrame,
			rec.Results.SessionID,
			frame.QuestionID,
			frame.FrameID,
			string(frame.Emotion),
			frame.Confidence,
			frame.Timestamp.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert archived frame: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}
	return nil
}

// RecentSessions lists archived sessions, most recently ended first.
func (s *SQLite) RecentSessions(ctx context.Context, limit int) ([]ArchivedSession, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT session_id, started_at, ended_at, total_frames, archived_at, results_json
		FROM archived_sessions
		ORDER BY ended_at_epoch DESC
		LIMIT ?`
	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query archived sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]ArchivedSession, 0, limit)
	for rows.Next() {
		archived, err := scanArchivedSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, archived)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived sessions: %w", err)
	}
	return sessions, nil
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases cached statements and the underlying database handle.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmts = make(map[string]*sql.Stmt)
	return s.db.Close()
}

func scanArchivedSession(rows *sql.Rows) (ArchivedSession, error) {
	var (
		archived    ArchivedSession
		startedAt   string
		endedAt     string
		archivedAt  string
		resultsJSON string
	)
	err := rows.Scan(
		&archived.SessionID,
		&startedAt,
		&endedAt,
		&archived.TotalFrames,
		&archivedAt,
		&resultsJSON,
	)
	if err != nil {
		return ArchivedSession{}, fmt.Errorf("scan archived session: %w", err)
	}

	if archived.StartTime, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return ArchivedSession{}, fmt.Errorf("parse started_at: %w", err)
	}
	if archived.EndTime, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
		return ArchivedSession{}, fmt.Errorf("parse ended_at: %w", err)
	}
	if archived.ArchivedAt, err = time.Parse(time.RFC3339Nano, archivedAt); err != nil {
		return ArchivedSession{}, fmt.Errorf("parse archived_at: %w", err)
	}

	var results models.SessionResults
	if err := json.Unmarshal([]byte(resultsJSON), &results); err != nil {
		return ArchivedSession{}, fmt.Errorf("unmarshal session results: %w", err)
	}
	archived.Results = results
	return archived, nil
}

// nullString maps empty strings to SQL NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package archive

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"

	"github.com/affectlab/moodtrace/pkg/models"
)

// sessionsIndexKey is the sorted set indexing archived sessions by end time.
const sessionsIndexKey = "sessions"

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// Redis archives sessions into Redis as one hash per session plus a sorted
// set index, with exponential backoff on transient write failures.
type Redis struct {
	pool *redis.Pool
}

// NewRedis connects a pool to addr and verifies connectivity.
func NewRedis(addr string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis archive address is empty")
	}

	pool := &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	r := &Redis{pool: pool}

	ping := func() error {
		conn := pool.Get()
		defer conn.Close()
		_, err := conn.Do("PING")
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(ping, policy); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return r, nil
}

// ArchiveSession writes the session hash and index entry, retrying
// transient failures with exponential backoff.
func (r *Redis) ArchiveSession(ctx context.Context, rec SessionRecord) error {
	if rec.Results.SessionID == "" {
		return fmt.Errorf("session record has no session id")
	}

	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("marshal session results: %w", err)
	}

	op := func() error {
		return r.archiveOnce(ctx, rec, resultsJSON)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, policy)
}

func (r *Redis) archiveOnce(ctx context.Context, rec SessionRecord, resultsJSON []byte) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	started := rec.Results.StartTime.UTC()
	ended := time.Now().UTC()
	if rec.Results.EndTime != nil {
		ended = rec.Results.EndTime.UTC()
	}
	archivedAt := time.Now().UTC()

	if err := conn.Send("MULTI"); err != nil {
		return fmt.Errorf("begin redis transaction: %w", err)
	}
	err = conn.Send("HSET", sessionKey(rec.Results.SessionID),
		"session_id", rec.Results.SessionID,
		"started_at", started.Format(time.RFC3339Nano),
		"ended_at", ended.Format(time.RFC3339Nano),
		"ended_at_epoch", ended.UnixMilli(),
		"total_frames", rec.Results.TotalFrames,
		"total_questions", rec.Results.TotalQuestions,
		"dominant_emotion", string(rec.Results.DominantEmotion),
		"results_json", string(resultsJSON),
		"archived_at", archivedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("queue session hash: %w", err)
	}
	if err := conn.Send("ZADD", sessionsIndexKey, ended.UnixMilli(), rec.Results.SessionID); err != nil {
		return fmt.Errorf("queue session index: %w", err)
	}
	if _, err := conn.Do("EXEC"); err != nil {
		return fmt.Errorf("commit redis transaction: %w", err)
	}
	return nil
}

// RecentSessions lists archived sessions, most recently ended first.
// Sessions whose hash has been removed are skipped.
func (r *Redis) RecentSessions(ctx context.Context, limit int) ([]ArchivedSession, error) {
	if limit <= 0 {
		limit = 20
	}

	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	ids, err := redis.Strings(conn.Do("ZREVRANGE", sessionsIndexKey, 0, limit-1))
	if err != nil {
		return nil, fmt.Errorf("query session index: %w", err)
	}

	sessions := make([]ArchivedSession, 0, len(ids))
	for _, id := range ids {
		fields, err := redis.StringMap(conn.Do("HGETALL", sessionKey(id)))
		if err != nil {
			return nil, fmt.Errorf("read session hash: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		archived, err := parseSessionHash(id, fields)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, archived)
	}
	return sessions, nil
}

func parseSessionHash(id string, fields map[string]string) (ArchivedSession, error) {
	archived := ArchivedSession{SessionID: id}

	var err error
	if archived.StartTime, err = time.Parse(time.RFC3339Nano, fields["started_at"]); err != nil {
		return ArchivedSession{}, fmt.Errorf("parse started_at: %w", err)
	}
	if archived.EndTime, err = time.Parse(time.RFC3339Nano, fields["ended_at"]); err != nil {
		return ArchivedSession{}, fmt.Errorf("parse ended_at: %w", err)
	}
	if archived.ArchivedAt, err = time.Parse(time.RFC3339Nano, fields["archived_at"]); err != nil {
		return ArchivedSession{}, fmt.Errorf("parse archived_at: %w", err)
	}
	if archived.TotalFrames, err = strconv.Atoi(fields["total_frames"]); err != nil {
		return ArchivedSession{}, fmt.Errorf("parse total_frames: %w", err)
	}

	var results models.SessionResults
	if err := json.Unmarshal([]byte(fields["results_json"]), &results); err != nil {
		return ArchivedSession{}, fmt.Errorf("unmarshal session results: %w", err)
	}
	archived.Results = results
	return archived, nil
}

// Ping verifies the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.pool.Close()
}

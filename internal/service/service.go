// Package service coordinates the session store with archival, event
// broadcasting and metrics.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/affectlab/moodtrace/internal/archive"
	"github.com/affectlab/moodtrace/internal/store"
	"github.com/affectlab/moodtrace/pkg/models"
	"github.com/affectlab/moodtrace/pkg/stats"
)

// defaultArchiveTimeout bounds one background archival attempt.
const defaultArchiveTimeout = 10 * time.Second

// SessionService is the application-facing facade over the session store.
// It layers best-effort archival, event broadcasting and metrics on top of
// the store's operations without changing their semantics.
type SessionService struct {
	store          *store.Store
	archiver       archive.Archiver
	events         EventSink
	inst           *instruments
	archiveTimeout time.Duration

	wg sync.WaitGroup
}

// Option customizes a SessionService.
type Option func(*SessionService)

// WithArchiver sets the backend completed sessions are persisted to.
func WithArchiver(a archive.Archiver) Option {
	return func(s *SessionService) {
		if a != nil {
			s.archiver = a
		}
	}
}

// WithEvents sets the sink lifecycle events are broadcast to.
func WithEvents(sink EventSink) Option {
	return func(s *SessionService) { s.events = sink }
}

// WithArchiveTimeout bounds each background archival attempt.
func WithArchiveTimeout(d time.Duration) Option {
	return func(s *SessionService) {
		if d > 0 {
			s.archiveTimeout = d
		}
	}
}

// New builds a SessionService around the store. Without options it archives
// to a no-op backend and broadcasts to nobody.
func New(st *store.Store, opts ...Option) (*SessionService, error) {
	inst, err := newInstruments()
	if err != nil {
		return nil, err
	}

	s := &SessionService{
		store:          st,
		archiver:       archive.Noop{},
		inst:           inst,
		archiveTimeout: defaultArchiveTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartSession creates a new active session.
func (s *SessionService) StartSession(ctx context.Context) models.SessionInfo {
	info := s.store.CreateSession()

	s.inst.sessionsStarted.Add(ctx, 1)
	s.inst.activeSessions.Add(ctx, 1)
	s.publish(Event{Type: EventSessionStarted, SessionID: info.SessionID})

	log.Debug().Str("session_id", info.SessionID).Msg("Session started")
	return info
}

// RecordFrame appends one classified frame to a question of an active
// session.
func (s *SessionService) RecordFrame(ctx context.Context, sessionID, questionID string, emotion models.EmotionLabel, confidence float64) (models.Frame, error) {
	frame, err := s.store.RecordFrame(sessionID, questionID, emotion, confidence)
	if err != nil {
		return models.Frame{}, err
	}

	s.inst.framesRecorded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("emotion", string(frame.Emotion))))
	s.publish(Event{
		Type:       EventFrameRecorded,
		SessionID:  sessionID,
		QuestionID: questionID,
		Frame:      &frame,
	})
	return frame, nil
}

// EndSession completes the session and schedules its archival in the
// background. Archival failures are logged and counted, never surfaced.
func (s *SessionService) EndSession(ctx context.Context, sessionID string) (models.SessionResults, error) {
	results, err := s.store.EndSession(sessionID)
	if err != nil {
		return models.SessionResults{}, err
	}

	s.inst.sessionsEnded.Add(ctx, 1)
	s.inst.activeSessions.Add(ctx, -1)
	s.publish(Event{Type: EventSessionEnded, SessionID: sessionID, Results: &results})

	frames, err := s.store.Frames(sessionID)
	if err != nil {
		// Session cleared between end and snapshot; archive results alone.
		frames = nil
	}
	s.archiveAsync(archive.SessionRecord{Results: results, Frames: frames})

	log.Info().
		Str("session_id", sessionID).
		Int("total_frames", results.TotalFrames).
		Int("total_questions", results.TotalQuestions).
		Msg("Session ended")
	return results, nil
}

// ClearSession removes the session and everything under it.
func (s *SessionService) ClearSession(ctx context.Context, sessionID string) error {
	status, err := s.store.ClearSession(sessionID)
	if err != nil {
		return err
	}

	s.inst.sessionsCleared.Add(ctx, 1)
	if status == models.SessionStatusActive {
		s.inst.activeSessions.Add(ctx, -1)
	}
	s.publish(Event{Type: EventSessionCleared, SessionID: sessionID})

	log.Info().Str("session_id", sessionID).Msg("Session cleared")
	return nil
}

// SessionResults returns the aggregated results for one session.
func (s *SessionService) SessionResults(ctx context.Context, sessionID string) (models.SessionResults, error) {
	return s.store.SessionResults(sessionID)
}

// QuestionResults returns the aggregated results for one question.
func (s *SessionService) QuestionResults(ctx context.Context, sessionID, questionID string) (models.QuestionResults, error) {
	return s.store.QuestionResults(sessionID, questionID)
}

// ListSessions returns all sessions in creation order.
func (s *SessionService) ListSessions(ctx context.Context) []models.SessionInfo {
	return s.store.ListSessions()
}

// ListQuestions returns a session's questions in insertion order.
func (s *SessionService) ListQuestions(ctx context.Context, sessionID string) ([]models.QuestionResults, error) {
	return s.store.ListQuestions(sessionID)
}

// RecentArchivedSessions lists previously archived sessions, most recently
// ended first.
func (s *SessionService) RecentArchivedSessions(ctx context.Context, limit int) ([]archive.ArchivedSession, error) {
	return s.archiver.RecentSessions(ctx, limit)
}

// SessionCount reports how many sessions the store currently holds.
func (s *SessionService) SessionCount(ctx context.Context) int {
	return s.store.SessionCount()
}

// UpdatePolicy swaps the summary policy used for live results.
func (s *SessionService) UpdatePolicy(p stats.Policy) {
	s.store.UpdatePolicy(p)
	log.Info().Msg("Summary policy updated")
}

// ArchiverHealthy reports whether the archive backend is reachable.
func (s *SessionService) ArchiverHealthy(ctx context.Context) bool {
	return s.archiver.Ping(ctx) == nil
}

func (s *SessionService) publish(event Event) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	s.events.Broadcast(event)
}

func (s *SessionService) archiveAsync(rec archive.SessionRecord) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.archiveTimeout)
		defer cancel()

		if err := s.archiver.ArchiveSession(ctx, rec); err != nil {
			s.inst.archiveFailures.Add(ctx, 1)
			log.Warn().Err(err).Str("session_id", rec.Results.SessionID).Msg("Failed to archive session")
			return
		}
		log.Debug().
			Str("session_id", rec.Results.SessionID).
			Int("frames", len(rec.Frames)).
			Msg("Session archived")
	}()
}

// Drain waits for in-flight archival work, up to the context deadline.
func (s *SessionService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/affectlab/moodtrace/pkg/models"
	"github.com/affectlab/moodtrace/pkg/stats"
)

// question is one question's state within a session. Frames are append-only.
type question struct {
	id        string
	createdAt time.Time
	frames    []models.Frame
}

// session owns one session subtree. Its mutex guards every field below it;
// the store's registry lock is never held while a session lock is taken, so
// operations on independent sessions never contend.
type session struct {
	mu        sync.RWMutex
	id        string
	status    models.SessionStatus
	startTime time.Time
	endTime   time.Time
	cleared   bool
	questions map[string]*question
	qorder    []string
	frames    int
	final     *models.SessionResults
}

// Store is the exclusive owner of all session, question and frame state.
// All operations are synchronous in-memory scans; there is no I/O here.
// Construct with New.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	order    []string

	policyMu sync.RWMutex
	policy   stats.Policy
}

// New creates an empty store using the given aggregation policy.
func New(policy stats.Policy) *Store {
	return &Store{
		sessions: make(map[string]*session),
		policy:   policy,
	}
}

// UpdatePolicy swaps the aggregation policy used for later summaries.
// Results frozen at EndSession keep the policy they were computed with.
func (st *Store) UpdatePolicy(p stats.Policy) {
	st.policyMu.Lock()
	st.policy = p
	st.policyMu.Unlock()
}

func (st *Store) currentPolicy() stats.Policy {
	st.policyMu.RLock()
	defer st.policyMu.RUnlock()
	return st.policy
}

// CreateSession registers a new active session and returns its listing row.
func (st *Store) CreateSession() models.SessionInfo {
	sess := &session{
		id:        uuid.NewString(),
		status:    models.SessionStatusActive,
		startTime: time.Now().UTC(),
		questions: make(map[string]*question),
	}

	st.mu.Lock()
	st.sessions[sess.id] = sess
	st.order = append(st.order, sess.id)
	st.mu.Unlock()

	return models.SessionInfo{
		SessionID: sess.id,
		Status:    sess.status,
		StartTime: sess.startTime,
	}
}

// get fetches a session pointer under the registry read lock.
func (st *Store) get(sessionID string) (*session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[sessionID]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	return sess, nil
}

// RecordFrame validates and appends one classified frame, creating the
// question on first use. The session must exist and still be active.
// Input validation happens before any state is touched, so a failed call
// leaves the store unchanged.
func (st *Store) RecordFrame(sessionID, questionID string, emotion models.EmotionLabel, confidence float64) (models.Frame, error) {
	if questionID == "" {
		return models.Frame{}, fmt.Errorf("question id is required: %w", ErrInvalidInput)
	}
	if !emotion.Valid() {
		return models.Frame{}, fmt.Errorf("emotion %q: %w", emotion, ErrInvalidInput)
	}
	if confidence < 0 || confidence > 1 {
		return models.Frame{}, fmt.Errorf("confidence %v out of range [0,1]: %w", confidence, ErrInvalidInput)
	}

	sess, err := st.get(sessionID)
	if err != nil {
		return models.Frame{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.cleared {
		return models.Frame{}, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	if sess.status != models.SessionStatusActive {
		return models.Frame{}, fmt.Errorf("session %q is %s: %w", sessionID, sess.status, ErrInvalidState)
	}

	now := time.Now().UTC()
	q, ok := sess.questions[questionID]
	if !ok {
		q = &question{id: questionID, createdAt: now}
		sess.questions[questionID] = q
		sess.qorder = append(sess.qorder, questionID)
	}

	frame := models.Frame{
		FrameID:    uuid.NewString(),
		Emotion:    emotion,
		Confidence: confidence,
		Timestamp:  now,
	}
	q.frames = append(q.frames, frame)
	sess.frames++

	return frame, nil
}

// EndSession completes an active session, freezing its end time and final
// results. Ending an already-completed session fails with ErrInvalidState
// and leaves the frozen results untouched.
func (st *Store) EndSession(sessionID string) (models.SessionResults, error) {
	sess, err := st.get(sessionID)
	if err != nil {
		return models.SessionResults{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.cleared {
		return models.SessionResults{}, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	if sess.status != models.SessionStatusActive {
		return models.SessionResults{}, fmt.Errorf("session %q already %s: %w", sessionID, sess.status, ErrInvalidState)
	}

	sess.status = models.SessionStatusCompleted
	sess.endTime = time.Now().UTC()

	final := sess.resultsLocked(st.currentPolicy())
	sess.final = &final

	return final, nil
}

// ClearSession atomically removes a session and its whole subtree,
// returning the session's status as of removal. Racing operations that
// already fetched the session observe ErrNotFound once the removal is
// committed.
func (st *Store) ClearSession(sessionID string) (models.SessionStatus, error) {
	st.mu.Lock()
	sess, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return "", fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	delete(st.sessions, sessionID)
	for i, id := range st.order {
		if id == sessionID {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	st.mu.Unlock()

	// Wait for in-flight holders to drain, then mark, so late lockers see
	// the session as gone instead of mutating an orphan. The status read
	// happens under the same lock: an EndSession that won the race is
	// reflected, one that lost it sees the cleared flag and changes nothing.
	sess.mu.Lock()
	sess.cleared = true
	status := sess.status
	sess.mu.Unlock()

	return status, nil
}

// SessionResults returns the aggregated payload for a session. Completed
// sessions return the snapshot frozen at EndSession; active sessions are
// summarized live under the session read lock.
func (st *Store) SessionResults(sessionID string) (models.SessionResults, error) {
	sess, err := st.get(sessionID)
	if err != nil {
		return models.SessionResults{}, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	if sess.cleared {
		return models.SessionResults{}, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	if sess.final != nil {
		return *sess.final, nil
	}
	return sess.resultsLocked(st.currentPolicy()), nil
}

// QuestionResults returns the aggregated payload for a single question.
func (st *Store) QuestionResults(sessionID, questionID string) (models.QuestionResults, error) {
	sess, err := st.get(sessionID)
	if err != nil {
		return models.QuestionResults{}, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	if sess.cleared {
		return models.QuestionResults{}, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}

	if sess.final != nil {
		for _, qr := range sess.final.Questions {
			if qr.QuestionID == questionID {
				return qr, nil
			}
		}
		return models.QuestionResults{}, fmt.Errorf("question %q in session %q: %w", questionID, sessionID, ErrNotFound)
	}

	q, ok := sess.questions[questionID]
	if !ok {
		return models.QuestionResults{}, fmt.Errorf("question %q in session %q: %w", questionID, sessionID, ErrNotFound)
	}
	return models.QuestionResults{
		QuestionID: q.id,
		Timestamp:  q.createdAt,
		Results:    stats.Summarize(samplesOf(q.frames), st.currentPolicy()),
	}, nil
}

// ListSessions returns all sessions as listing rows in creation order.
func (st *Store) ListSessions() []models.SessionInfo {
	st.mu.RLock()
	sessions := make([]*session, 0, len(st.order))
	for _, id := range st.order {
		if sess, ok := st.sessions[id]; ok {
			sessions = append(sessions, sess)
		}
	}
	st.mu.RUnlock()

	out := make([]models.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.RLock()
		info := models.SessionInfo{
			SessionID:   sess.id,
			Status:      sess.status,
			StartTime:   sess.startTime,
			TotalFrames: sess.frames,
		}
		if !sess.endTime.IsZero() {
			end := sess.endTime
			info.EndTime = &end
		}
		sess.mu.RUnlock()
		out = append(out, info)
	}
	return out
}

// ListQuestions returns per-question results in question insertion order.
func (st *Store) ListQuestions(sessionID string) ([]models.QuestionResults, error) {
	sess, err := st.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	if sess.cleared {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	if sess.final != nil {
		return sess.final.Questions, nil
	}

	p := st.currentPolicy()
	out := make([]models.QuestionResults, 0, len(sess.qorder))
	for _, qid := range sess.qorder {
		q := sess.questions[qid]
		out = append(out, models.QuestionResults{
			QuestionID: q.id,
			Timestamp:  q.createdAt,
			Results:    stats.Summarize(samplesOf(q.frames), p),
		})
	}
	return out, nil
}

// Frames returns a copy of a session's frames tagged with their question
// ids, in question-then-insertion order. Used for archival.
func (st *Store) Frames(sessionID string) ([]models.QuestionFrame, error) {
	sess, err := st.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	if sess.cleared {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}

	out := make([]models.QuestionFrame, 0, sess.frames)
	for _, qid := range sess.qorder {
		for _, f := range sess.questions[qid].frames {
			out = append(out, models.QuestionFrame{QuestionID: qid, Frame: f})
		}
	}
	return out, nil
}

// Status reports the lifecycle state of a session.
func (st *Store) Status(sessionID string) (models.SessionStatus, error) {
	sess, err := st.get(sessionID)
	if err != nil {
		return "", err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	if sess.cleared {
		return "", fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	return sess.status, nil
}

// SessionCount returns the number of sessions currently held.
func (st *Store) SessionCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// resultsLocked assembles the full session payload. The caller must hold
// the session lock.
func (sess *session) resultsLocked(p stats.Policy) models.SessionResults {
	all := make([]stats.Sample, 0, sess.frames)
	questions := make([]models.QuestionResults, 0, len(sess.qorder))

	for _, qid := range sess.qorder {
		q := sess.questions[qid]
		qsamples := samplesOf(q.frames)
		all = append(all, qsamples...)
		questions = append(questions, models.QuestionResults{
			QuestionID: q.id,
			Timestamp:  q.createdAt,
			Results:    stats.Summarize(qsamples, p),
		})
	}

	res := models.SessionResults{
		SessionID:      sess.id,
		Status:         sess.status,
		StartTime:      sess.startTime,
		TotalQuestions: len(sess.qorder),
		Results:        stats.SummarizeSession(all, p, len(sess.qorder)),
		Questions:      questions,
	}
	if !sess.endTime.IsZero() {
		end := sess.endTime
		res.EndTime = &end
	}
	return res
}

// samplesOf flattens frames into engine samples.
func samplesOf(frames []models.Frame) []stats.Sample {
	out := make([]stats.Sample, len(frames))
	for i, f := range frames {
		out[i] = stats.Sample{Emotion: f.Emotion, Confidence: f.Confidence}
	}
	return out
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/affectlab/moodtrace/internal/archive"
	"github.com/affectlab/moodtrace/internal/store"
	"github.com/affectlab/moodtrace/pkg/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	Sessions        int    `json:"sessions"`
	SSEClients      int    `json:"sse_clients"`
	ArchiveHealthy  bool   `json:"archive_healthy"`
	ClassifierReady bool   `json:"classifier_ready"`
}

type listSessionsResponse struct {
	Sessions []models.SessionInfo `json:"sessions"`
	Count    int                  `json:"count"`
}

type listQuestionsResponse struct {
	SessionID string                   `json:"session_id"`
	Questions []models.QuestionResults `json:"questions"`
	Count     int                      `json:"count"`
}

type archivedSessionsResponse struct {
	Sessions []archive.ArchivedSession `json:"sessions"`
	Count    int                       `json:"count"`
}

type recordFrameRequest struct {
	QuestionID string  `json:"question_id"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

type frameResponse struct {
	SessionID string `json:"session_id"`
	models.QuestionFrame
}

// allowedImageExts are the upload formats forwarded to the classifier.
var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps the store's error taxonomy onto HTTP status codes.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// handleHealth godoc
//
//	@Summary		Worker health
//	@Description	Reports worker status, session counts and backend reachability.
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	healthResponse
//	@Failure		503	{object}	healthResponse
//	@Router			/health [get]
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:  "starting",
			Version: s.version,
		})
		return
	}

	probeCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	classifierReady := s.classifier != nil && s.classifier.Healthy(probeCtx)

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		Version:         s.version,
		UptimeSeconds:   int64(time.Since(s.startTime).Seconds()),
		Sessions:        s.sessions.SessionCount(r.Context()),
		SSEClients:      s.broadcaster.ClientCount(),
		ArchiveHealthy:  s.sessions.ArchiverHealthy(r.Context()),
		ClassifierReady: classifierReady,
	})
}

// handleStartSession godoc
//
//	@Summary		Start a session
//	@Description	Creates a new active session and returns its descriptor.
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	models.SessionInfo
//	@Router			/api/sessions [post]
func (s *Service) handleStartSession(w http.ResponseWriter, r *http.Request) {
	info := s.sessions.StartSession(r.Context())
	s.writeJSON(w, http.StatusCreated, info)
}

// handleListSessions godoc
//
//	@Summary		List sessions
//	@Description	Lists all sessions in creation order, active and completed.
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	listSessionsResponse
//	@Router			/api/sessions [get]
func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.ListSessions(r.Context())
	s.writeJSON(w, http.StatusOK, listSessionsResponse{
		Sessions: sessions,
		Count:    len(sessions),
	})
}

// handleRecordFrame godoc
//
//	@Summary		Record a frame
//	@Description	Records a classified frame. Accepts a JSON body with an emotion label, or a multipart image upload that is classified first.
//	@Tags			frames
//	@Accept			json
//	@Accept			mpfd
//	@Produce		json
//	@Param			sessionID	path		string				true	"Session ID"
//	@Param			frame		body		recordFrameRequest	false	"Pre-classified frame"
//	@Success		201			{object}	frameResponse
//	@Failure		400			{object}	errorResponse
//	@Failure		404			{object}	errorResponse
//	@Failure		409			{object}	errorResponse
//	@Failure		503			{object}	errorResponse
//	@Router			/api/sessions/{sessionID}/frames [post]
func (s *Service) handleRecordFrame(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.recordFrameFromImage(w, r, sessionID)
		return
	}

	var req recordFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("decode request: %w", store.ErrInvalidInput))
		return
	}

	emotion, err := models.ParseEmotion(req.Emotion)
	if err != nil {
		s.writeError(w, fmt.Errorf("%v: %w", err, store.ErrInvalidInput))
		return
	}

	frame, err := s.sessions.RecordFrame(r.Context(), sessionID, req.QuestionID, emotion, req.Confidence)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, frameResponse{
		SessionID: sessionID,
		QuestionFrame: models.QuestionFrame{
			QuestionID: req.QuestionID,
			Frame:      frame,
		},
	})
}

// recordFrameFromImage classifies an uploaded image and records the result.
func (s *Service) recordFrameFromImage(w http.ResponseWriter, r *http.Request, sessionID string) {
	if s.classifier == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no classifier configured"})
		return
	}

	maxBytes := int64(s.config.UploadMaxMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeError(w, fmt.Errorf("parse upload: %w", store.ErrInvalidInput))
		return
	}

	questionID := r.FormValue("question_id")

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, fmt.Errorf("missing file field: %w", store.ErrInvalidInput))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		s.writeError(w, fmt.Errorf("unsupported image type %q: %w", ext, store.ErrInvalidInput))
		return
	}

	result, err := s.classifier.Classify(r.Context(), header.Filename, file)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Classification failed")
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "classification failed"})
		return
	}

	frame, err := s.sessions.RecordFrame(r.Context(), sessionID, questionID, result.Emotion, result.Confidence)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, frameResponse{
		SessionID: sessionID,
		QuestionFrame: models.QuestionFrame{
			QuestionID: questionID,
			Frame:      frame,
		},
	})
}

// handleEndSession godoc
//
//	@Summary		End a session
//	@Description	Completes the session, freezes its results and archives them in the background.
//	@Tags			sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Success		200			{object}	models.SessionResults
//	@Failure		404			{object}	errorResponse
//	@Failure		409			{object}	errorResponse
//	@Router			/api/sessions/{sessionID}/end [post]
func (s *Service) handleEndSession(w http.ResponseWriter, r *http.Request) {
	results, err := s.sessions.EndSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// handleClearSession godoc
//
//	@Summary		Clear a session
//	@Description	Removes a session and all of its recorded data.
//	@Tags			sessions
//	@Param			sessionID	path	string	true	"Session ID"
//	@Success		204
//	@Failure		404	{object}	errorResponse
//	@Router			/api/sessions/{sessionID} [delete]
func (s *Service) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.ClearSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionResults godoc
//
//	@Summary		Session results
//	@Description	Returns the aggregate summary for a session. Live for active sessions, frozen once ended.
//	@Tags			results
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Success		200			{object}	models.SessionResults
//	@Failure		404			{object}	errorResponse
//	@Router			/api/sessions/{sessionID}/results [get]
func (s *Service) handleSessionResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.sessions.SessionResults(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// handleListQuestions godoc
//
//	@Summary		List questions
//	@Description	Lists per-question summaries for a session in first-frame order.
//	@Tags			results
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Success		200			{object}	listQuestionsResponse
//	@Failure		404			{object}	errorResponse
//	@Router			/api/sessions/{sessionID}/questions [get]
func (s *Service) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	questions, err := s.sessions.ListQuestions(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listQuestionsResponse{
		SessionID: sessionID,
		Questions: questions,
		Count:     len(questions),
	})
}

// handleQuestionResults godoc
//
//	@Summary		Question results
//	@Description	Returns the summary for a single question within a session.
//	@Tags			results
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Param			questionID	path		string	true	"Question ID"
//	@Success		200			{object}	models.QuestionResults
//	@Failure		404			{object}	errorResponse
//	@Router			/api/sessions/{sessionID}/questions/{questionID}/results [get]
func (s *Service) handleQuestionResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.sessions.QuestionResults(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "questionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// handleArchivedSessions godoc
//
//	@Summary		List archived sessions
//	@Description	Lists recently archived sessions, newest first.
//	@Tags			archive
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum sessions to return"
//	@Success		200		{object}	archivedSessionsResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		500		{object}	errorResponse
//	@Router			/api/archive/sessions [get]
func (s *Service) handleArchivedSessions(w http.ResponseWriter, r *http.Request) {
	limit := s.config.RecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, fmt.Errorf("limit %q: %w", raw, store.ErrInvalidInput))
			return
		}
		limit = n
	}

	sessions, err := s.sessions.RecentArchivedSessions(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list archived sessions")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "archive unavailable"})
		return
	}
	if sessions == nil {
		sessions = []archive.ArchivedSession{}
	}

	s.writeJSON(w, http.StatusOK, archivedSessionsResponse{
		Sessions: sessions,
		Count:    len(sessions),
	})
}

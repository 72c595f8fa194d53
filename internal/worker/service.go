// Package worker provides the REST service: session lifecycle routes, the
// live event stream, the embedded dashboard and the Swagger UI.
package worker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/affectlab/moodtrace/docs"
	"github.com/affectlab/moodtrace/internal/classify"
	"github.com/affectlab/moodtrace/internal/config"
	"github.com/affectlab/moodtrace/internal/service"
	"github.com/affectlab/moodtrace/internal/worker/sse"
)

// Service wires the session service, the classifier client and the SSE
// broadcaster behind a chi router.
type Service struct {
	version     string
	config      *config.Config
	sessions    *service.SessionService
	classifier  *classify.Client
	broadcaster *sse.Broadcaster
	router      chi.Router
	httpServer  *http.Server
	ctx         context.Context
	cancel      context.CancelFunc
	startTime   time.Time
	ready       atomic.Bool
}

// New assembles the worker service. classifier may be nil when no
// classification backend is configured; image uploads then answer 503.
func New(version string, cfg *config.Config, sessions *service.SessionService, broadcaster *sse.Broadcaster, classifier *classify.Client) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		version:     version,
		config:      cfg,
		sessions:    sessions,
		classifier:  classifier,
		broadcaster: broadcaster,
		router:      chi.NewRouter(),
		ctx:         ctx,
		cancel:      cancel,
		startTime:   time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	s.router.Use(corsHandler.Handler)

	s.router.Get("/", s.serveIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/swagger/*", httpSwagger.WrapHandler)
	s.router.Get("/api/events", s.broadcaster.HandleSSE)

	s.router.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleStartSession)
		r.Get("/", s.handleListSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.handleClearSession)
			r.Post("/frames", s.handleRecordFrame)
			r.Post("/end", s.handleEndSession)
			r.Get("/results", s.handleSessionResults)
			r.Get("/questions", s.handleListQuestions)
			r.Get("/questions/{questionID}/results", s.handleQuestionResults)
		})
	})

	s.router.Get("/api/archive/sessions", s.handleArchivedSessions)
}

// requestLogger emits one debug line per completed request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// Router exposes the configured handler tree for embedding and tests.
func (s *Service) Router() http.Handler {
	return s.router
}

// Start begins listening on the configured port. It returns once the
// listener is accepting connections; serving continues in the background.
func (s *Service) Start() error {
	addr := fmt.Sprintf(":%d", s.config.WorkerPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.ready.Store(true)
	log.Info().Str("addr", addr).Str("version", s.version).Msg("Worker listening")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	return nil
}

// Shutdown disconnects event streams, stops the listener and waits for
// in-flight archival work. Event streams close first so their handlers
// return and the graceful shutdown can complete.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.cancel()

	s.broadcaster.CloseAll()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	if drainErr := s.sessions.Drain(ctx); drainErr != nil && err == nil {
		err = drainErr
	}
	return err
}

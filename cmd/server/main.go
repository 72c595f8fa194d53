// Package main provides the moodtrace worker server entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/affectlab/moodtrace/internal/archive"
	"github.com/affectlab/moodtrace/internal/classify"
	"github.com/affectlab/moodtrace/internal/config"
	"github.com/affectlab/moodtrace/internal/policy"
	"github.com/affectlab/moodtrace/internal/service"
	"github.com/affectlab/moodtrace/internal/store"
	"github.com/affectlab/moodtrace/internal/worker"
	"github.com/affectlab/moodtrace/internal/worker/sse"
	"github.com/affectlab/moodtrace/pkg/stats"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "Listen port (default: settings or 37710)")
	classifierURL := flag.String("classifier-url", "", "Emotion classifier base URL (default: settings)")
	archiveBackend := flag.String("archive", "", "Archive backend: none, sqlite, postgres or redis (default: settings)")
	policyPath := flag.String("policy", "", "Aggregation policy YAML file (default: settings)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	// Ensure data directory and settings exist
	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}

	// Flags override settings
	if *port > 0 {
		cfg.WorkerPort = *port
	}
	if *classifierURL != "" {
		cfg.ClassifierURL = *classifierURL
	}
	if *archiveBackend != "" {
		cfg.ArchiveBackend = *archiveBackend
	}
	if *policyPath != "" {
		cfg.PolicyPath = *policyPath
	}
	if !*debug {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
			zerolog.SetGlobalLevel(lvl)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down worker")
		cancel()
	}()

	// Archive backend
	archiver, err := archive.New(archive.Config{
		Backend:     cfg.ArchiveBackend,
		SQLitePath:  cfg.ArchiveSQLitePath,
		PostgresDSN: cfg.PostgresDSN,
		RedisAddr:   cfg.RedisAddr,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize archive backend")
	}
	defer archiver.Close()
	log.Info().Str("backend", cfg.ArchiveBackend).Msg("Archive backend ready")

	// Session store with hot-reloadable aggregation policy
	st := store.New(stats.DefaultPolicy())
	provider, err := policy.New(cfg.PolicyPath, st.UpdatePolicy)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.PolicyPath).Msg("Failed to load aggregation policy")
	}
	st.UpdatePolicy(provider.Current())
	if err := provider.Start(); err != nil {
		log.Warn().Err(err).Msg("Policy hot reload disabled")
	} else {
		defer provider.Stop()
	}

	// Classifier client (optional)
	var classifier *classify.Client
	if cfg.ClassifierURL != "" {
		classifier = classify.New(cfg.ClassifierURL, time.Duration(cfg.ClassifierTimeout)*time.Second)
		probeCtx, probeCancel := context.WithTimeout(ctx, 3*time.Second)
		if classifier.Healthy(probeCtx) {
			log.Info().Str("url", cfg.ClassifierURL).Msg("Classifier reachable")
		} else {
			log.Warn().Str("url", cfg.ClassifierURL).Msg("Classifier not reachable, image uploads will fail until it is")
		}
		probeCancel()
	} else {
		log.Info().Msg("No classifier configured, image uploads disabled")
	}

	broadcaster := sse.NewBroadcaster()
	sessions, err := service.New(st,
		service.WithArchiver(archiver),
		service.WithEvents(broadcaster),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session service")
	}

	svc := worker.New(Version, cfg, sessions, broadcaster, classifier)
	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start worker")
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown incomplete")
	}
	log.Info().Msg("Worker stopped")
}

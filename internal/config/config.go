// Package config provides configuration management for moodtrace.
//
// Settings live in ~/.moodtrace/settings.json keyed by the same names as
// the corresponding environment variables. A missing or malformed file
// falls back to the defaults.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Built-in defaults.
const (
	DefaultWorkerPort        = 37710
	DefaultClassifierURL     = "http://127.0.0.1:8501"
	DefaultClassifierTimeout = 30 // seconds
	DefaultArchiveBackend    = "sqlite"
	DefaultLogLevel          = "info"
	DefaultRecentLimit       = 20
	DefaultUploadMaxMB       = 10
)

// DefaultCORSOrigins allows any origin; the capture UI is served from
// another port during development.
var DefaultCORSOrigins = []string{"*"}

// Config is the runtime configuration for the worker and its
// collaborators.
type Config struct {
	WorkerPort        int
	ClassifierURL     string
	ClassifierTimeout int // seconds
	ArchiveBackend    string
	ArchiveSQLitePath string
	PostgresDSN       string
	RedisAddr         string
	PolicyPath        string
	CORSOrigins       []string
	LogLevel          string
	RecentLimit       int
	UploadMaxMB       int
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WorkerPort:        DefaultWorkerPort,
		ClassifierURL:     DefaultClassifierURL,
		ClassifierTimeout: DefaultClassifierTimeout,
		ArchiveBackend:    DefaultArchiveBackend,
		ArchiveSQLitePath: ArchivePath(),
		PolicyPath:        PolicyPath(),
		CORSOrigins:       DefaultCORSOrigins,
		LogLevel:          DefaultLogLevel,
		RecentLimit:       DefaultRecentLimit,
		UploadMaxMB:       DefaultUploadMaxMB,
	}
}

// DataDir returns the moodtrace data directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".moodtrace")
}

// ArchivePath returns the default SQLite archive location.
func ArchivePath() string {
	return filepath.Join(DataDir(), "archive.db")
}

// SettingsPath returns the settings file location.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// PolicyPath returns the summary policy file location.
func PolicyPath() string {
	return filepath.Join(DataDir(), "policy.yaml")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaults := map[string]interface{}{
		"MOODTRACE_WORKER_PORT":     DefaultWorkerPort,
		"MOODTRACE_CLASSIFIER_URL":  DefaultClassifierURL,
		"MOODTRACE_ARCHIVE_BACKEND": DefaultArchiveBackend,
		"MOODTRACE_LOG_LEVEL":       DefaultLogLevel,
	}
	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// settingKeys are the recognized settings.json keys. Environment variables
// with the same names override the file.
var settingKeys = []string{
	"MOODTRACE_WORKER_PORT",
	"MOODTRACE_CLASSIFIER_URL",
	"MOODTRACE_CLASSIFIER_TIMEOUT",
	"MOODTRACE_ARCHIVE_BACKEND",
	"MOODTRACE_ARCHIVE_SQLITE_PATH",
	"MOODTRACE_POSTGRES_DSN",
	"MOODTRACE_REDIS_ADDR",
	"MOODTRACE_POLICY_PATH",
	"MOODTRACE_CORS_ORIGINS",
	"MOODTRACE_LOG_LEVEL",
	"MOODTRACE_ARCHIVE_RECENT_LIMIT",
	"MOODTRACE_UPLOAD_MAX_MB",
}

// Load reads settings.json on top of the defaults, then overlays any
// MOODTRACE_* environment variables. Missing or malformed settings never
// fail the load; they are logged and skipped.
func Load() (*Config, error) {
	cfg := Default()

	settings := make(map[string]interface{})
	if data, err := os.ReadFile(SettingsPath()); err == nil {
		if err := json.Unmarshal(data, &settings); err != nil {
			log.Warn().Err(err).Str("path", SettingsPath()).Msg("Ignoring malformed settings file")
			settings = make(map[string]interface{})
		}
	}
	for _, key := range settingKeys {
		if v := os.Getenv(key); v != "" {
			settings[key] = v
		}
	}

	if v, ok := intSetting(settings, "MOODTRACE_WORKER_PORT"); ok && v > 0 {
		cfg.WorkerPort = v
	}
	if v, ok := strSetting(settings, "MOODTRACE_CLASSIFIER_URL"); ok {
		cfg.ClassifierURL = v
	}
	if v, ok := intSetting(settings, "MOODTRACE_CLASSIFIER_TIMEOUT"); ok && v > 0 {
		cfg.ClassifierTimeout = v
	}
	if v, ok := strSetting(settings, "MOODTRACE_ARCHIVE_BACKEND"); ok {
		cfg.ArchiveBackend = v
	}
	if v, ok := strSetting(settings, "MOODTRACE_ARCHIVE_SQLITE_PATH"); ok {
		cfg.ArchiveSQLitePath = v
	}
	if v, ok := strSetting(settings, "MOODTRACE_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := strSetting(settings, "MOODTRACE_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := strSetting(settings, "MOODTRACE_POLICY_PATH"); ok {
		cfg.PolicyPath = v
	}
	if v, ok := strSetting(settings, "MOODTRACE_CORS_ORIGINS"); ok {
		if origins := splitTrim(v); len(origins) > 0 {
			cfg.CORSOrigins = origins
		}
	}
	if v, ok := strSetting(settings, "MOODTRACE_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := intSetting(settings, "MOODTRACE_ARCHIVE_RECENT_LIMIT"); ok && v > 0 {
		cfg.RecentLimit = v
	}
	if v, ok := intSetting(settings, "MOODTRACE_UPLOAD_MAX_MB"); ok && v > 0 {
		cfg.UploadMaxMB = v
	}

	return cfg, nil
}

var (
	global     *Config
	globalOnce sync.Once
)

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load settings, using defaults")
			cfg = Default()
		}
		global = cfg
	})
	return global
}

// GetWorkerPort returns the REST port, honoring the MOODTRACE_WORKER_PORT
// environment variable when it holds a valid port.
func GetWorkerPort() int {
	if raw := os.Getenv("MOODTRACE_WORKER_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			return port
		}
	}
	return Get().WorkerPort
}

func intSetting(settings map[string]interface{}, key string) (int, bool) {
	v, ok := settings[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func strSetting(settings map[string]interface{}, key string) (string, bool) {
	v, ok := settings[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// splitTrim splits a comma separated list, trimming blanks.
func splitTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

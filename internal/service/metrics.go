package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/affectlab/moodtrace/internal/service")

// instruments bundles the service's OpenTelemetry counters. With no meter
// provider installed they are no-ops.
type instruments struct {
	sessionsStarted metric.Int64Counter
	sessionsEnded   metric.Int64Counter
	sessionsCleared metric.Int64Counter
	framesRecorded  metric.Int64Counter
	activeSessions  metric.Int64UpDownCounter
	archiveFailures metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	var (
		inst instruments
		err  error
	)

	if inst.sessionsStarted, err = meter.Int64Counter("moodtrace.sessions.started",
		metric.WithDescription("Sessions started.")); err != nil {
		return nil, err
	}
	if inst.sessionsEnded, err = meter.Int64Counter("moodtrace.sessions.ended",
		metric.WithDescription("Sessions ended.")); err != nil {
		return nil, err
	}
	if inst.sessionsCleared, err = meter.Int64Counter("moodtrace.sessions.cleared",
		metric.WithDescription("Sessions cleared.")); err != nil {
		return nil, err
	}
	if inst.framesRecorded, err = meter.Int64Counter("moodtrace.frames.recorded",
		metric.WithDescription("Frames recorded, partitioned by emotion.")); err != nil {
		return nil, err
	}
	if inst.activeSessions, err = meter.Int64UpDownCounter("moodtrace.sessions.active",
		metric.WithDescription("Sessions currently active.")); err != nil {
		return nil, err
	}
	if inst.archiveFailures, err = meter.Int64Counter("moodtrace.archive.failures",
		metric.WithDescription("Session archival attempts that failed.")); err != nil {
		return nil, err
	}
	return &inst, nil
}

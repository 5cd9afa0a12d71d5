package rsspoll

import (
	"log/slog"
)

// Sink receives every failed attempt.
//
// Error is called from the feed's own goroutine before the backoff sleep, so
// it must not block for long. Implementations must be safe for concurrent
// use when more than one feed is configured. Panics are recovered.
type Sink interface {
	Error(feed string, err error)
}

// SinkFunc adapts an ordinary function to a [Sink].
type SinkFunc func(feed string, err error)

// Error calls f(feed, err).
func (f SinkFunc) Error(feed string, err error) {
	f(feed, err)
}

// NopSink discards every report. It is the default sink.
type NopSink struct{}

// Error implements Sink.
func (NopSink) Error(string, error) {}

// SlogSink writes failures to a [slog.Logger] at WARN level.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink returns a [SlogSink] writing to logger, or to [slog.Default]
// when logger is nil.
func NewSlogSink(logger *slog.Logger) SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogSink{Logger: logger}
}

// Error implements Sink.
func (s SlogSink) Error(feed string, err error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"feed", feed, "error", err}
	if se, ok := IsStatusError(err); ok {
		attrs = append(attrs, "status_code", se.StatusCode)
	}
	logger.Warn("fetch failed", attrs...)
}

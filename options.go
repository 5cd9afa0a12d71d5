package rsspoll

import (
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/cenkalti/backoff/v4"
)

// pollerConfig holds mutable state during Poller construction.
type pollerConfig struct {
	feeds      []Feed
	logger     *slog.Logger
	sink       Sink
	output     io.Writer
	userAgents []string
	statusPort int
	callbacks  []func(FetchResult)
	rand       rand.Source
	newTimer   func() backoff.Timer
}

// Option configures a [Poller] during construction.
//
// Built-in options: [WithFeed], [WithFeeds], [WithLogger], [WithSink],
// [WithOutput], [WithUserAgents], [WithStatusPort], [WithResultCallback],
// [WithRandSource].
type Option func(*pollerConfig) error

// WithFeed adds a single [Feed]. At least one feed must be configured for
// [New] to succeed.
func WithFeed(f Feed) Option {
	return func(cfg *pollerConfig) error {
		cfg.feeds = append(cfg.feeds, f)
		return nil
	}
}

// WithFeeds adds several feeds at once, typically the output of
// [NewFeedGrid].
//
// Example:
//
//	feeds, err := rsspoll.NewFeedGrid("news", ...)
//	p, err := rsspoll.New(rsspoll.WithFeeds(feeds...))
func WithFeeds(feeds ...Feed) Option {
	return func(cfg *pollerConfig) error {
		cfg.feeds = append(cfg.feeds, feeds...)
		return nil
	}
}

// WithLogger sets the [slog.Logger] for lifecycle and panic logs.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pollerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSink sets the diagnostic sink told about every failed attempt.
// Defaults to [NopSink].
//
// Returns an error if the sink is nil.
func WithSink(s Sink) Option {
	return func(cfg *pollerConfig) error {
		if s == nil {
			return errors.New("sink cannot be nil")
		}
		cfg.sink = s
		return nil
	}
}

// WithOutput sets where successful bodies are written, each followed by a
// newline. Defaults to [os.Stdout]. Pass [io.Discard] to rely on callbacks
// alone.
//
// Returns an error if the writer is nil.
func WithOutput(w io.Writer) Option {
	return func(cfg *pollerConfig) error {
		if w == nil {
			return errors.New("output writer cannot be nil")
		}
		cfg.output = w
		return nil
	}
}

// WithUserAgents replaces the default user-agent candidates for every feed
// that does not set its own via [WithFeedUserAgents].
//
// Returns an error if the list is empty or contains a blank entry.
func WithUserAgents(agents ...string) Option {
	return func(cfg *pollerConfig) error {
		if err := validateUserAgents(agents); err != nil {
			return err
		}
		cfg.userAgents = append([]string(nil), agents...)
		return nil
	}
}

// WithStatusPort enables the read-only status API on the given port.
// Zero, the default, disables it.
//
// Returns an error if the port is outside 0-65535.
func WithStatusPort(port int) Option {
	return func(cfg *pollerConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("status port must be between 0 and 65535")
		}
		cfg.statusPort = port
		return nil
	}
}

// WithResultCallback registers a function called with every attempt,
// successful or not.
//
// Callbacks run synchronously, in registration order, on the goroutine that
// consumes results. A blocking callback stalls every feed. Panics are
// recovered and logged. Nil callbacks are ignored.
func WithResultCallback(cb func(FetchResult)) Option {
	return func(cfg *pollerConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

// WithRandSource seeds user-agent selection and backoff jitter. Each feed
// derives its own source from it, so a fixed seed makes a run
// reproducible. By default sources are seeded from the clock.
//
// Returns an error if the source is nil.
func WithRandSource(src rand.Source) Option {
	return func(cfg *pollerConfig) error {
		if src == nil {
			return errors.New("rand source cannot be nil")
		}
		cfg.rand = src
		return nil
	}
}

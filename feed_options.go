package rsspoll

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jpalmerr/rsspoll/internal/headers"
	"github.com/jpalmerr/rsspoll/internal/jitter"
)

// MaxBackoff is the largest base backoff a feed accepts.
const MaxBackoff = jitter.MaxBase

// feedConfig holds mutable state during feed construction.
type feedConfig struct {
	labels     map[string]string
	headers    map[string]string
	timeout    time.Duration
	backoff    time.Duration
	rateLimit  float64
	userAgents []string
}

// FeedOption configures a [Feed] during construction.
//
// Built-in options: [WithLabels], [WithHeaders], [WithTimeout],
// [WithBackoff], [WithRateLimit], [WithFeedUserAgents].
type FeedOption func(*feedConfig) error

// WithLabels adds metadata labels to the feed. Labels are reported in
// results and in the status API; they are not sent on the wire.
//
// Returns an error if an odd number of arguments is provided.
func WithLabels(keyValues ...string) FeedOption {
	return func(cfg *feedConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithHeaders adds static HTTP headers to every request for this feed.
//
// Static headers override the rotating browser headers of the same name,
// except User-Agent, which always comes from the candidate list. Use
// [WithFeedUserAgents] to control it.
//
// Returns an error if an odd number of arguments is provided or a
// User-Agent header is given.
func WithHeaders(keyValues ...string) FeedOption {
	return func(cfg *feedConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			if err := checkHeaderName(keyValues[i]); err != nil {
				return err
			}
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// checkHeaderName rejects names the header generator owns.
func checkHeaderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("header name cannot be empty")
	}
	if strings.EqualFold(name, headers.HeaderUserAgent) {
		return errors.New("User-Agent cannot be set as a static header; use WithFeedUserAgents")
	}
	return nil
}

// WithTimeout sets the per-request timeout. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) FeedOption {
	return func(cfg *feedConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithBackoff sets the base backoff. After a failed attempt the loop waits
// a random duration in [1.5*d, 2*d]. Defaults to 2 seconds.
//
// Returns an error if the duration is zero, negative, or above [MaxBackoff].
func WithBackoff(d time.Duration) FeedOption {
	return func(cfg *feedConfig) error {
		if d <= 0 {
			return errors.New("backoff must be positive")
		}
		if d > MaxBackoff {
			return fmt.Errorf("backoff must be at most %s, got %s", MaxBackoff, d)
		}
		cfg.backoff = d
		return nil
	}
}

// WithRateLimit caps the feed at perSecond requests per second across
// successes and retries. Zero means unlimited, which is the default.
//
// Returns an error if the value is negative or not finite.
func WithRateLimit(perSecond float64) FeedOption {
	return func(cfg *feedConfig) error {
		if perSecond < 0 || math.IsNaN(perSecond) || math.IsInf(perSecond, 0) {
			return fmt.Errorf("rate limit must be a non-negative finite number, got %v", perSecond)
		}
		cfg.rateLimit = perSecond
		return nil
	}
}

// WithFeedUserAgents overrides the poller-wide user-agent candidates for
// this feed.
//
// Returns an error if the list is empty or contains a blank entry.
func WithFeedUserAgents(agents ...string) FeedOption {
	return func(cfg *feedConfig) error {
		if err := validateUserAgents(agents); err != nil {
			return err
		}
		cfg.userAgents = append([]string(nil), agents...)
		return nil
	}
}

func validateUserAgents(agents []string) error {
	if len(agents) == 0 {
		return errors.New("at least one user agent is required")
	}
	for i, ua := range agents {
		if strings.TrimSpace(ua) == "" {
			return fmt.Errorf("user agent at index %d is empty", i)
		}
	}
	return nil
}

package rsspoll

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// gridConfig holds configuration during feed grid construction.
type gridConfig struct {
	urlTemplate  string
	dimensions   map[string][]string
	staticLabels map[string]string
	headers      map[string]string
	timeout      time.Duration
	backoff      time.Duration
	rateLimit    float64
	userAgents   []string
}

// GridOption configures feed grid generation for [NewFeedGrid].
type GridOption func(*gridConfig) error

// WithURLTemplate sets the URL template for feed generation.
// The template uses text/template syntax with dimension keys as variables.
//
// Example:
//
//	WithURLTemplate("https://example.com/rss?lang={{.lang}}&category={{.category}}")
//
// Returns an error if the template string is empty.
func WithURLTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("URL template required")
		}
		cfg.urlTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
// Each key in the map becomes a template variable, and the cartesian product
// of all values generates the feed combinations.
//
// Example:
//
//	WithDimensions(map[string][]string{
//	    "lang":     {"en", "ru"},
//	    "category": {"sports", "science"},
//	})
//
// Values end up in feed names, which the status API serves as path
// segments, so a value may not contain '/'. Repeating a value within a
// dimension would repeat a feed name.
//
// Returns an error if the map is empty, any dimension has no values, or a
// value is empty, repeated, or contains '/'.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		copied := make(map[string][]string, len(dims))
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				switch {
				case v == "":
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				case strings.Contains(v, "/"):
					return fmt.Errorf("dimension '%s' value %q cannot contain '/'", k, v)
				case slices.Contains(vals[:i], v):
					return fmt.Errorf("dimension '%s' repeats value %q", k, v)
				}
			}
			copied[k] = slices.Clone(vals)
		}
		cfg.dimensions = copied
		return nil
	}
}

// WithGridLabels adds static labels to all generated feeds.
// These labels are merged with auto-generated dimension labels.
// On collision, static labels take precedence over dimension labels.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	WithGridLabels("source", "example", "tier", "primary")
func WithGridLabels(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridLabels requires an even number of arguments (key-value pairs)")
		}
		if cfg.staticLabels == nil {
			cfg.staticLabels = make(map[string]string)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.staticLabels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithGridHeaders adds static HTTP headers to all generated feeds.
// User-Agent is rejected; see [WithHeaders].
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	WithGridHeaders("Authorization", "Bearer token")
func WithGridHeaders(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridHeaders requires an even number of arguments (key-value pairs)")
		}
		if cfg.headers == nil {
			cfg.headers = make(map[string]string)
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

// WithGridTimeout sets the request timeout for all generated feeds.
//
// Returns an error if the duration is negative.
// A duration of zero is valid and means use the feed default.
func WithGridTimeout(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithGridBackoff sets the base backoff for all generated feeds.
//
// Returns an error if the duration is negative or above [MaxBackoff].
// A duration of zero is valid and means use the feed default.
func WithGridBackoff(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("backoff cannot be negative")
		}
		if d > MaxBackoff {
			return fmt.Errorf("backoff must be at most %s, got %s", MaxBackoff, d)
		}
		cfg.backoff = d
		return nil
	}
}

// WithGridRateLimit caps every generated feed at perSecond requests per
// second. The limit applies per feed, not to the grid as a whole.
//
// Returns an error if the value is negative or not finite.
func WithGridRateLimit(perSecond float64) GridOption {
	return func(cfg *gridConfig) error {
		if perSecond < 0 || math.IsNaN(perSecond) || math.IsInf(perSecond, 0) {
			return fmt.Errorf("rate limit must be a non-negative finite number, got %v", perSecond)
		}
		cfg.rateLimit = perSecond
		return nil
	}
}

// WithGridUserAgents sets the user-agent candidates for all generated feeds.
//
// Returns an error if the list is empty or contains a blank entry.
func WithGridUserAgents(agents ...string) GridOption {
	return func(cfg *gridConfig) error {
		if err := validateUserAgents(agents); err != nil {
			return err
		}
		cfg.userAgents = append([]string(nil), agents...)
		return nil
	}
}

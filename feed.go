package rsspoll

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/jpalmerr/rsspoll/internal/jitter"
)

const defaultFeedTimeout = 10 * time.Second

// Feed is a URL polled forever by its own fetch-retry loop.
//
// Feed is immutable after creation via [NewFeed]. Getters return copies of
// mutable data.
type Feed struct {
	name       string
	url        string
	labels     map[string]string
	headers    map[string]string
	timeout    time.Duration
	backoff    time.Duration
	rateLimit  float64
	userAgents []string
}

// Name returns the feed's unique name.
func (f Feed) Name() string {
	return f.name
}

// URL returns the polled URL.
func (f Feed) URL() string {
	return f.url
}

// Labels returns a copy of the feed's labels. Returns nil if none are set.
func (f Feed) Labels() map[string]string {
	return copyMap(f.labels)
}

// Headers returns a copy of the static headers sent in addition to the
// rotating browser header set.
func (f Feed) Headers() map[string]string {
	return copyMap(f.headers)
}

// Timeout returns the per-request timeout. Defaults to 10 seconds.
func (f Feed) Timeout() time.Duration {
	return f.timeout
}

// Backoff returns the base backoff. A failed attempt waits between 1.5x and
// 2x this value before the next one. Defaults to 2 seconds.
func (f Feed) Backoff() time.Duration {
	return f.backoff
}

// RateLimit returns the maximum requests per second, or 0 for unlimited.
func (f Feed) RateLimit() float64 {
	return f.rateLimit
}

// UserAgents returns the feed's user-agent candidates, or nil when the
// poller-wide list applies.
func (f Feed) UserAgents() []string {
	if f.userAgents == nil {
		return nil
	}
	return append([]string(nil), f.userAgents...)
}

// NewFeed creates a [Feed] with the given name, URL, and options.
//
// The rawURL parameter must be a valid URL with an http or https scheme.
//
// The name is served as a status API path segment and may not contain '/'.
//
// Returns an error if the name is empty or contains '/', the URL is
// invalid, or an option fails validation.
//
// Example:
//
//	feed, err := rsspoll.NewFeed("bbc-world", "https://feeds.bbci.co.uk/news/world/rss.xml",
//	    rsspoll.WithLabels("lang", "en"),
//	    rsspoll.WithBackoff(3 * time.Second),
//	)
func NewFeed(name, rawURL string, opts ...FeedOption) (Feed, error) {
	if name == "" {
		return Feed{}, errors.New("feed name cannot be empty")
	}
	if strings.Contains(name, "/") {
		return Feed{}, errors.New("feed name cannot contain '/'")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Feed{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Feed{}, errors.New("URL must have a scheme (http:// or https://)")
	}
	if parsedURL.Host == "" {
		return Feed{}, errors.New("URL must have a host")
	}

	cfg := &feedConfig{
		labels:  make(map[string]string),
		headers: make(map[string]string),
		timeout: defaultFeedTimeout,
		backoff: jitter.DefaultBase,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Feed{}, err
		}
	}

	return Feed{
		name:       name,
		url:        rawURL,
		labels:     cfg.labels,
		headers:    cfg.headers,
		timeout:    cfg.timeout,
		backoff:    cfg.backoff,
		rateLimit:  cfg.rateLimit,
		userAgents: cfg.userAgents,
	}, nil
}

// MustNewFeed is like [NewFeed] but panics on error. Intended for static
// feed declarations.
func MustNewFeed(name, rawURL string, opts ...FeedOption) Feed {
	f, err := NewFeed(name, rawURL, opts...)
	if err != nil {
		panic("rsspoll: " + err.Error())
	}
	return f
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

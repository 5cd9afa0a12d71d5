package rsspoll

import (
	"errors"
	"time"

	"github.com/jpalmerr/rsspoll/internal/fetch"
)

// FetchResult holds the outcome of one attempt against one feed.
//
// FetchResult is a copy owned by the receiver; modifying it does not affect
// the poller.
type FetchResult struct {
	// FeedName is the name of the polled feed.
	FeedName string

	// URL is the fetched URL.
	URL string

	// Labels are the feed's labels.
	Labels map[string]string

	// Attempt counts the feed's attempts from 1.
	Attempt uint64

	// StatusCode is zero if no response was received.
	StatusCode int

	// Body is the raw response body, decoded from any content encoding.
	// For a non-2xx response it holds the error page, if any.
	Body []byte

	// Latency is the time taken by the request.
	Latency time.Duration

	// FetchedAt is when the attempt started.
	FetchedAt time.Time

	// Error is nil for a successful attempt. A non-2xx status is reported as
	// a [*StatusError].
	Error error

	// Backoff is the delay before the next attempt. Zero after a success.
	Backoff time.Duration
}

// OK reports whether the attempt succeeded.
func (r FetchResult) OK() bool {
	return r.Error == nil
}

// StatusError is the error of an attempt that received a non-2xx response.
type StatusError = fetch.StatusError

// IsStatusError reports whether err is, or wraps, a [*StatusError] and
// returns it.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

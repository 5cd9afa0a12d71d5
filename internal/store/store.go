package store

import "time"

// Attempt is one fetch outcome recorded into the store.
type Attempt struct {
	Name       string
	URL        string
	Labels     map[string]string
	StatusCode int
	BodySize   int
	Latency    time.Duration
	At         time.Time

	// Err is nil for a successful attempt.
	Err error

	// Backoff is the delay scheduled after a failed attempt.
	Backoff time.Duration
}

// FeedState is the aggregated state of a feed, shaped for JSON.
type FeedState struct {
	Name   string            `json:"name"`
	URL    string            `json:"url"`
	Labels map[string]string `json:"labels,omitempty"`

	// Healthy is true when the most recent attempt succeeded.
	Healthy bool `json:"healthy"`

	Attempts            uint64 `json:"attempts"`
	Failures            uint64 `json:"failures"`
	ConsecutiveFailures uint64 `json:"consecutive_failures"`

	LastStatusCode int   `json:"last_status_code"`
	LastBodySize   int   `json:"last_body_size"`
	LastLatencyMs  int64 `json:"last_latency_ms"`
	LastBackoffMs  int64 `json:"last_backoff_ms,omitempty"`

	LastCheckedAt time.Time  `json:"last_checked_at"`
	LastSuccessAt *time.Time `json:"last_success_at"`

	// LastError is the message of the most recent failure, cleared on success.
	LastError *string `json:"last_error"`
}

// Store records attempts and publishes the resulting feed states.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Record folds an attempt into its feed's state, notifies subscribers,
	// and returns the new state.
	Record(a Attempt) FeedState

	// GetAll returns a snapshot of every feed, sorted by name.
	GetAll() []FeedState

	// Get returns the state of one feed.
	Get(name string) (FeedState, bool)

	// Subscribe returns a buffered channel of state updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan FeedState

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan FeedState)
}

// Package store keeps the latest per-feed polling state and fans updates out
// to subscribers.
//
// This package is internal to rsspoll. Response bodies are never stored; the
// store only aggregates counters and the outcome of the most recent attempt.
//
// The main components are:
//
//   - [Store]: Interface defining recording and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [FeedState]: Aggregated state of one feed
//   - [Attempt]: A single fetch outcome fed into the store
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers miss updates rather than block the poller).
package store

// Package rsspoll polls news feeds over HTTP and emits their raw bodies.
//
// Every feed runs its own fetch-retry loop: it issues a GET with a
// browser-like header set and a user-agent drawn from a candidate list.
// A successful body is written to the poller's output and the next request
// starts immediately. A failure, either a transport error or a non-2xx
// status, is reported to the configured [Sink] and retried after a
// randomized backoff of 1.5x to 2x the feed's base. Loops run until the
// context passed to [Poller.Start] is cancelled. Bodies are never parsed.
//
// # Quick Start
//
//	feed, _ := rsspoll.NewFeed("bbc-world", "https://feeds.bbci.co.uk/news/world/rss.xml")
//	p, _ := rsspoll.New(
//	    rsspoll.WithFeed(feed),
//	    rsspoll.WithSink(rsspoll.NewSlogSink(nil)),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	p.Start(ctx) // blocks until ctx is cancelled
//
// # Feed Grids
//
// [NewFeedGrid] expands a URL template over the cartesian product of
// dimension values, one feed per combination:
//
//	feeds, err := rsspoll.NewFeedGrid("news",
//	    rsspoll.WithURLTemplate("https://example.com/{{.lang}}/{{.category}}.rss"),
//	    rsspoll.WithDimensions(map[string][]string{
//	        "lang":     {"en", "ru"},
//	        "category": {"sports", "science"},
//	    }),
//	    rsspoll.WithGridBackoff(3 * time.Second),
//	)
//
// # Observing Results
//
// Besides the output writer, every attempt can be observed with
// [WithResultCallback], and per-feed state is served as JSON and
// Server-Sent Events when [WithStatusPort] is set.
//
// # Architecture
//
//   - internal/headers: rotating browser-like header sets
//   - internal/jitter: the jittered retry delay, as a cenkalti/backoff policy
//   - internal/fetch: pooled HTTP client with content decoding
//   - internal/fetchloop: the fetch-retry loop for one URL
//   - internal/runner: one loop per feed, results fanned into one channel
//   - internal/store: in-memory feed state with pub/sub
//   - internal/server: status API
//
// The internal packages are not part of the public API.
package rsspoll

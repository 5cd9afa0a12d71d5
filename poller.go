package rsspoll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jpalmerr/rsspoll/internal/runner"
	"github.com/jpalmerr/rsspoll/internal/server"
	"github.com/jpalmerr/rsspoll/internal/store"
)

// Poller runs one fetch-retry loop per feed and writes successful bodies to
// its output.
//
// The typical lifecycle is:
//
//	p, err := rsspoll.New(rsspoll.WithFeed(feed))
//	if err != nil {
//	    slog.Error("failed to create poller", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	p.Start(ctx) // blocks until ctx is cancelled
type Poller struct {
	feeds      []Feed
	logger     *slog.Logger
	sink       Sink
	userAgents []string
	statusPort int
	callbacks  []func(FetchResult)
	rand       rand.Source
	newTimer   func() backoff.Timer

	outMu  sync.Mutex
	output io.Writer
}

// New creates a [Poller] with the given options.
//
// At least one feed must be configured via [WithFeed] or [WithFeeds].
// Other options default to: [NopSink], [os.Stdout], the built-in
// user-agent list, no status API.
//
// Returns an error if no feeds are configured, two feeds share a name, or
// an option is invalid.
func New(opts ...Option) (*Poller, error) {
	cfg := &pollerConfig{}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.feeds) == 0 {
		return nil, errors.New("at least one feed is required")
	}

	// names key the store and the status API
	seen := make(map[string]bool, len(cfg.feeds))
	for _, f := range cfg.feeds {
		if seen[f.name] {
			return nil, fmt.Errorf("duplicate feed name: %q", f.name)
		}
		seen[f.name] = true
	}

	if cfg.statusPort < 0 || cfg.statusPort > 65535 {
		return nil, fmt.Errorf("status port must be between 0 and 65535, got %d", cfg.statusPort)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := cfg.sink
	if sink == nil {
		sink = NopSink{}
	}
	output := cfg.output
	if output == nil {
		output = os.Stdout
	}

	return &Poller{
		feeds:      cfg.feeds,
		logger:     logger,
		sink:       sink,
		userAgents: cfg.userAgents,
		statusPort: cfg.statusPort,
		callbacks:  cfg.callbacks,
		rand:       cfg.rand,
		newTimer:   cfg.newTimer,
		output:     output,
	}, nil
}

// Start polls every feed until ctx is cancelled.
//
// Start blocks. Each feed is fetched in its own loop: a successful body is
// written to the output followed by a newline and the next request starts
// immediately; a failure is reported to the sink and retried after the
// feed's backoff. If a status port is configured the status API is served
// for the same lifetime.
//
// Returns nil on cancellation. Returns an error if the loops cannot be
// constructed or the status API cannot bind its port.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("rsspoll starting", "feed_count", len(p.feeds))

	if ctx.Err() != nil {
		return nil
	}

	run, err := runner.New(p.toFeedInfos(), runner.Options{
		UserAgents: p.userAgents,
		Rand:       p.rand,
		Reporter:   p.sink,
		NewTimer:   p.newTimer,
	}, p.logger)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	feedStore := store.NewMemoryStore()
	for _, f := range p.feeds {
		feedStore.Register(f.name, f.url, f.labels)
	}

	run.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for res := range run.Results() {
			p.handle(res, feedStore)
		}
	}()

	cleanup := func() {
		run.Stop()
		wg.Wait()
	}

	if p.statusPort > 0 {
		srv := server.NewServer(feedStore, fmt.Sprintf(":%d", p.statusPort), p.logger)
		if err := srv.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	<-ctx.Done()
	cleanup()
	p.logger.Info("rsspoll stopped")
	return nil
}

// handle records res, writes a successful body, and runs callbacks.
func (p *Poller) handle(res runner.Result, feedStore *store.MemoryStore) {
	labels := p.labelsFor(res.Feed)

	feedStore.Record(store.Attempt{
		Name:       res.Feed,
		URL:        res.URL,
		Labels:     labels,
		StatusCode: res.StatusCode,
		BodySize:   len(res.Body),
		Latency:    res.Latency,
		At:         res.FetchedAt,
		Err:        res.Error,
		Backoff:    res.Backoff,
	})

	logAttrs := []any{
		"feed", res.Feed,
		"attempt", res.Attempt,
		"status_code", res.StatusCode,
		"latency_ms", res.Latency.Milliseconds(),
	}

	if res.Error == nil {
		p.writeBody(res.Feed, res.Body)
		p.logger.Debug("fetch completed", append(logAttrs, "bytes", len(res.Body))...)
	} else {
		p.logger.Debug("fetch failed", append(logAttrs,
			"error", res.Error.Error(),
			"backoff", res.Backoff.String(),
		)...)
	}

	if len(p.callbacks) > 0 {
		public := toPublicResult(res, labels)
		for _, cb := range p.callbacks {
			invokeCallbackSafe(cb, public, p.logger)
		}
	}
}

// writeBody writes body and a newline as one unit.
func (p *Poller) writeBody(feed string, body []byte) {
	buf := make([]byte, 0, len(body)+1)
	buf = append(buf, body...)
	buf = append(buf, '\n')

	p.outMu.Lock()
	defer p.outMu.Unlock()
	if _, err := p.output.Write(buf); err != nil {
		p.logger.Error("failed to write body", "feed", feed, "error", err)
	}
}

func (p *Poller) labelsFor(name string) map[string]string {
	for _, f := range p.feeds {
		if f.name == name {
			return f.labels
		}
	}
	return nil
}

// toFeedInfos converts feeds to the runner's representation.
func (p *Poller) toFeedInfos() []runner.FeedInfo {
	result := make([]runner.FeedInfo, len(p.feeds))
	for i, f := range p.feeds {
		result[i] = runner.FeedInfo{
			Name:       f.name,
			URL:        f.url,
			Labels:     copyMap(f.labels),
			Headers:    copyMap(f.headers),
			Timeout:    f.timeout,
			Backoff:    f.backoff,
			RateLimit:  f.rateLimit,
			UserAgents: f.UserAgents(),
		}
	}
	return result
}

// Feeds returns a copy of the configured feeds.
func (p *Poller) Feeds() []Feed {
	cp := make([]Feed, len(p.feeds))
	copy(cp, p.feeds)
	return cp
}

// StatusPort returns the status API port, or 0 when it is disabled.
func (p *Poller) StatusPort() int {
	return p.statusPort
}

// toPublicResult copies mutable fields so callbacks cannot race the poller.
func toPublicResult(res runner.Result, labels map[string]string) FetchResult {
	return FetchResult{
		FeedName:   res.Feed,
		URL:        res.URL,
		Labels:     copyMap(labels),
		Attempt:    res.Attempt,
		StatusCode: res.StatusCode,
		Body:       copyBytes(res.Body),
		Latency:    res.Latency,
		FetchedAt:  res.FetchedAt,
		Error:      res.Error,
		Backoff:    res.Backoff,
	}
}

// copyBytes returns a copy of the byte slice, or nil if input is nil.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// invokeCallbackSafe calls a result callback with panic recovery.
func invokeCallbackSafe(cb func(FetchResult), result FetchResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked",
				"panic", r,
				"feed", result.FeedName,
				"correlation_id", uuid.NewString(),
			)
		}
	}()
	cb(result)
}

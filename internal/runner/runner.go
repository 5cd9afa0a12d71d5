package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/rsspoll/internal/fetch"
	"github.com/jpalmerr/rsspoll/internal/fetchloop"
	"github.com/jpalmerr/rsspoll/internal/headers"
	"github.com/jpalmerr/rsspoll/internal/jitter"
)

// Result is the outcome of one attempt against one feed.
type Result = fetchloop.Result

// FeedInfo contains what the runner needs to poll a single feed.
//
// This is the runner-internal representation of a feed, decoupled from
// rsspoll.Feed to avoid circular dependencies.
type FeedInfo struct {
	// Name is the unique display name of the feed.
	Name string

	// URL is the feed URL.
	URL string

	// Labels are passed through untouched for consumers.
	Labels map[string]string

	// Headers are sent with every request in addition to the rotating set.
	Headers map[string]string

	// Timeout is the per-request timeout. Zero means no per-request bound.
	Timeout time.Duration

	// Backoff is the base backoff. Zero uses backoff.DefaultBase.
	Backoff time.Duration

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64

	// UserAgents overrides Options.UserAgents for this feed.
	UserAgents []string
}

// Options configures a [Runner].
type Options struct {
	// UserAgents is the default user-agent candidate list.
	// Empty uses headers.DefaultUserAgents.
	UserAgents []string

	// Rand seeds every per-feed random source. Nil uses time-seeded sources.
	Rand rand.Source

	// Reporter is told about every failed attempt. Nil disables reporting.
	Reporter fetchloop.Reporter

	// NewTimer overrides the backoff timer, mainly for tests.
	NewTimer func() backoff.Timer

	// Doer overrides the HTTP client, mainly for tests. When nil the runner
	// creates and owns a fetch.Client.
	Doer fetchloop.Doer
}

// Runner runs the fetch-retry loops of all configured feeds.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Runner struct {
	loops   []*fetchloop.Loop
	client  *fetch.Client
	results chan Result
	logger  *slog.Logger
	cancel  context.CancelFunc
	done    <-chan struct{}
	wg      sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// New creates a [Runner] for feeds.
//
// Returns an error if no feeds are given, a feed name is duplicated, or a
// feed's loop cannot be constructed.
func New(feeds []FeedInfo, opts Options, logger *slog.Logger) (*Runner, error) {
	if len(feeds) == 0 {
		return nil, errors.New("at least one feed is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		results: make(chan Result, len(feeds)),
		logger:  logger,
	}

	doer := opts.Doer
	if doer == nil {
		r.client = fetch.NewClient()
		doer = r.client
	}

	defaultAgents := opts.UserAgents
	if len(defaultAgents) == 0 {
		defaultAgents = headers.DefaultUserAgents
	}

	seen := make(map[string]bool, len(feeds))
	for _, feed := range feeds {
		if seen[feed.Name] {
			return nil, fmt.Errorf("duplicate feed name: %q", feed.Name)
		}
		seen[feed.Name] = true

		agents := feed.UserAgents
		if len(agents) == 0 {
			agents = defaultAgents
		}
		gen, err := headers.New(agents, childSource(opts.Rand))
		if err != nil {
			return nil, fmt.Errorf("feed %q: %w", feed.Name, err)
		}

		loop, err := fetchloop.New(fetchloop.Config{
			Name:     feed.Name,
			URL:      feed.URL,
			Timeout:  feed.Timeout,
			Headers:  gen,
			Extra:    feed.Headers,
			Backoff:  jitter.New(feed.Backoff, childSource(opts.Rand)),
			NewTimer: opts.NewTimer,
			Doer:     doer,
			Reporter: opts.Reporter,
			Limiter:  newLimiter(feed.RateLimit),
			Logger:   logger,
			Emit:     r.emit,
		})
		if err != nil {
			return nil, fmt.Errorf("feed %q: %w", feed.Name, err)
		}
		r.loops = append(r.loops, loop)
	}

	return r, nil
}

// childSource derives an independent source from parent, or nil.
func childSource(parent rand.Source) rand.Source {
	if parent == nil {
		return nil
	}
	return rand.NewPCG(parent.Uint64(), parent.Uint64())
}

// newLimiter returns nil for an unlimited rate.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Results returns the channel every attempt is delivered on.
//
// The channel is closed once the runner stops. Consumers must drain it:
// loops block on a full channel.
func (r *Runner) Results() <-chan Result {
	return r.results
}

// Start launches every loop in the background and returns immediately.
//
// If ctx is nil, context.Background() is used. Start is idempotent; if Stop
// was called first, Start is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = runCtx.Done()
	r.wg.Add(1)
	r.mu.Unlock()

	r.logger.Info("runner starting", "feeds", len(r.loops))

	go func() {
		defer r.wg.Done()
		defer r.closeOnce.Do(func() { close(r.results) })

		g, gctx := errgroup.WithContext(runCtx)
		for _, loop := range r.loops {
			g.Go(func() error {
				return loop.Run(gctx)
			})
		}

		err := g.Wait()
		r.logger.Info("runner stopped", "reason", err)
	}()
}

// Stop cancels all loops and blocks until they have returned and the
// results channel is closed.
//
// Stop is idempotent and safe to call before Start.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		if r.cancel != nil {
			r.cancel()
		}
	}
	r.mu.Unlock()

	r.wg.Wait()

	if r.client != nil {
		r.client.Close()
	}

	r.closeOnce.Do(func() { close(r.results) })
}

// emit delivers a loop result, giving up once the runner is stopping.
// Loops only run after Start has set done.
func (r *Runner) emit(res Result) {
	select {
	case r.results <- res:
	case <-r.done:
	}
}

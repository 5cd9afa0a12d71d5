package fetchloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/rsspoll/internal/fetch"
	"github.com/jpalmerr/rsspoll/internal/headers"
	"github.com/jpalmerr/rsspoll/internal/jitter"
)

// Doer performs a single feed request. [*fetch.Client] implements Doer.
type Doer interface {
	Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) fetch.Response
}

// HeaderSource produces the header set for one attempt.
// [*headers.Generator] implements HeaderSource.
type HeaderSource interface {
	Next() map[string]string
}

// Reporter receives every failed attempt.
type Reporter interface {
	Error(feed string, err error)
}

type nopReporter struct{}

func (nopReporter) Error(string, error) {}

// Result is the outcome of one attempt.
type Result struct {
	// Feed is the name of the feed the loop polls.
	Feed string

	// URL is the fetched URL.
	URL string

	// Attempt counts iterations from 1.
	Attempt uint64

	// StatusCode is zero when no response was received.
	StatusCode int

	// Body is the raw response body. For failures it may hold an error page.
	Body []byte

	Latency   time.Duration
	FetchedAt time.Time

	// Error is nil for a successful attempt.
	Error error

	// Backoff is the delay chosen after a failed attempt; zero on success.
	Backoff time.Duration
}

// Config configures a [Loop].
type Config struct {
	// Name identifies the feed in results and reports. Defaults to URL.
	Name string

	// URL is fetched on every iteration. Required.
	URL string

	// Timeout bounds each request. Zero means bounded only by the context.
	Timeout time.Duration

	// Headers supplies the rotating header set. Required.
	Headers HeaderSource

	// Extra headers are added to every request and win over a generated
	// header of the same canonical name. They cannot replace the rotating
	// User-Agent.
	Extra map[string]string

	// Backoff picks the delay after a failure. It must never return
	// backoff.Stop. Defaults to jitter.New(jitter.DefaultBase, nil).
	Backoff backoff.BackOff

	// NewTimer creates the timer that waits out each backoff. Nil uses a
	// real timer.
	NewTimer func() backoff.Timer

	// Doer issues requests. Required.
	Doer Doer

	// Reporter is told about every failure. Nil disables reporting.
	Reporter Reporter

	// Emit receives every result, successful or not. Required.
	Emit func(Result)

	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter

	// Logger records recovered panics. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Loop is a fetch-retry loop for one URL.
type Loop struct {
	cfg Config
}

// New validates cfg, fills in defaults and returns a [Loop].
func New(cfg Config) (*Loop, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if cfg.Headers == nil {
		return nil, errors.New("header source is required")
	}
	if cfg.Doer == nil {
		return nil, errors.New("doer is required")
	}
	if cfg.Emit == nil {
		return nil, errors.New("emit function is required")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("timeout cannot be negative")
	}

	if cfg.Name == "" {
		cfg.Name = cfg.URL
	}
	if cfg.Backoff == nil {
		cfg.Backoff = jitter.New(jitter.DefaultBase, nil)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = nopReporter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	extra := make(map[string]string, len(cfg.Extra))
	for k, v := range cfg.Extra {
		k = http.CanonicalHeaderKey(k)
		if k == headers.HeaderUserAgent {
			continue
		}
		extra[k] = v
	}
	cfg.Extra = extra

	return &Loop{cfg: cfg}, nil
}

// Name returns the feed name the loop reports under.
func (l *Loop) Name() string {
	return l.cfg.Name
}

// Run fetches until ctx is cancelled and then returns ctx.Err().
//
// After a successful fetch the next iteration starts immediately. After a
// failure the error is reported, the result emitted, and the loop waits for
// the backoff delay. A request cut short by cancellation is not treated as a
// failure.
func (l *Loop) Run(ctx context.Context) error {
	var attempt uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.retry(ctx, &attempt)
	}
}

// retry fetches until one attempt succeeds or ctx ends. Every failure
// between the two goes through notify.
func (l *Loop) retry(ctx context.Context, attempt *uint64) {
	var failed Result

	op := func() error {
		if l.cfg.Limiter != nil {
			if err := l.cfg.Limiter.Wait(ctx); err != nil {
				// the next token lies beyond ctx's deadline
				<-ctx.Done()
				return backoff.Permanent(ctx.Err())
			}
		}

		*attempt++
		res := l.attempt(ctx, *attempt)
		if res.Error == nil {
			l.emit(res)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		failed = res
		return res.Error
	}

	notify := func(err error, d time.Duration) {
		failed.Backoff = d
		l.report(err)
		l.emit(failed)
	}

	var timer backoff.Timer
	if l.cfg.NewTimer != nil {
		timer = l.cfg.NewTimer()
	}

	// the only terminal errors are ctx's, which Run checks
	_ = backoff.RetryNotifyWithTimer(op, backoff.WithContext(l.cfg.Backoff, ctx), notify, timer)
}

// attempt performs one fetch. Panics are recovered into the result's error.
func (l *Loop) attempt(ctx context.Context, n uint64) (res Result) {
	res = Result{
		Feed:      l.cfg.Name,
		URL:       l.cfg.URL,
		Attempt:   n,
		FetchedAt: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			res.Error = l.recovered("fetch panic", r)
			res.Body = nil
			res.StatusCode = 0
		}
	}()

	generated := l.cfg.Headers.Next()
	h := make(map[string]string, len(generated)+len(l.cfg.Extra))
	for k, v := range generated {
		h[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range l.cfg.Extra {
		h[k] = v
	}

	resp := l.cfg.Doer.Fetch(ctx, l.cfg.URL, h, l.cfg.Timeout)
	res.Body = resp.Body
	res.StatusCode = resp.StatusCode
	res.Latency = resp.Latency
	res.Error = resp.Error
	return res
}

// emit hands res to the configured function with panic recovery.
func (l *Loop) emit(res Result) {
	defer func() {
		if r := recover(); r != nil {
			_ = l.recovered("emit panic", r)
		}
	}()
	l.cfg.Emit(res)
}

// report hands err to the reporter with panic recovery.
func (l *Loop) report(err error) {
	defer func() {
		if r := recover(); r != nil {
			_ = l.recovered("reporter panic", r)
		}
	}()
	l.cfg.Reporter.Error(l.cfg.Name, err)
}

// recovered logs a recovered panic with a correlation ID and returns an error
// that carries the same ID.
func (l *Loop) recovered(msg string, r any) error {
	correlationID := uuid.NewString()
	l.cfg.Logger.Error(msg,
		"feed", l.cfg.Name,
		"correlation_id", correlationID,
		"panic", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()),
	)
	return fmt.Errorf("%s (correlation_id: %s)", msg, correlationID)
}

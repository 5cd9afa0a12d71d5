package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/rsspoll"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// start mock server (see mock_server.go)
	go StartMockFeedServer(":9999")
	time.Sleep(100 * time.Millisecond)

	// grid API: 2 languages x 2 categories = 4 feeds from one declaration
	feeds, err := rsspoll.NewFeedGrid("mock",
		rsspoll.WithURLTemplate("http://localhost:9999/rss/{{.lang}}/{{.category}}"),
		rsspoll.WithDimensions(map[string][]string{
			"lang":     {"en", "ru"},
			"category": {"sports", "science"},
		}),
		rsspoll.WithGridBackoff(time.Second),
		rsspoll.WithGridRateLimit(2),
	)
	if err != nil {
		logger.Error("failed to create feed grid", "error", err)
		os.Exit(1)
	}

	p, err := rsspoll.New(
		rsspoll.WithFeeds(feeds...),
		rsspoll.WithLogger(logger),
		rsspoll.WithSink(rsspoll.NewSlogSink(logger)),
		rsspoll.WithStatusPort(8080),
		rsspoll.WithResultCallback(func(r rsspoll.FetchResult) {
			if r.Attempt%20 == 0 {
				logger.Info("progress", "feed", r.FeedName, "attempt", r.Attempt)
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create poller", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "  rsspoll demo")
	fmt.Fprintln(os.Stderr, "  4 mock feeds (2 languages x 2 categories), ~25% failing")
	fmt.Fprintln(os.Stderr, "  bodies on stdout, failures on stderr")
	fmt.Fprintln(os.Stderr, "  feed state: http://localhost:8080/api/feeds")
	fmt.Fprintln(os.Stderr, "  Press Ctrl+C to stop")
	fmt.Fprintln(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		logger.Error("rsspoll error", "error", err)
		os.Exit(1)
	}
}

package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/jpalmerr/rsspoll"
)

// BuildFeeds converts parsed configuration into SDK feeds.
//
// Direct feeds come first, then grid feeds in configuration order. Unset
// per-feed backoff and timeout fall back to the global values.
func BuildFeeds(cfg *Config) ([]rsspoll.Feed, error) {
	var feeds []rsspoll.Feed

	for _, fc := range cfg.Feeds {
		f, err := buildFeed(cfg, fc)
		if err != nil {
			return nil, fmt.Errorf("feed %q: %w", fc.Name, err)
		}
		feeds = append(feeds, f)
	}

	for _, gc := range cfg.Grids {
		gridFeeds, err := buildGrid(cfg, gc)
		if err != nil {
			return nil, fmt.Errorf("grid %q: %w", gc.Name, err)
		}
		feeds = append(feeds, gridFeeds...)
	}

	return feeds, nil
}

// PollerOptions returns the [rsspoll.Option] values the configuration
// describes: its feeds, the status port, and the user-agent list.
func PollerOptions(cfg *Config) ([]rsspoll.Option, error) {
	feeds, err := BuildFeeds(cfg)
	if err != nil {
		return nil, err
	}

	opts := []rsspoll.Option{
		rsspoll.WithFeeds(feeds...),
		rsspoll.WithStatusPort(cfg.StatusPort),
	}
	if len(cfg.UserAgents) > 0 {
		opts = append(opts, rsspoll.WithUserAgents(cfg.UserAgents...))
	}
	return opts, nil
}

func buildFeed(cfg *Config, fc FeedConfig) (rsspoll.Feed, error) {
	opts := []rsspoll.FeedOption{
		rsspoll.WithBackoff(orDefault(fc.Backoff, cfg.Backoff)),
		rsspoll.WithTimeout(orDefault(fc.Timeout, cfg.Timeout)),
	}

	if fc.RateLimit > 0 {
		opts = append(opts, rsspoll.WithRateLimit(fc.RateLimit))
	}
	if len(fc.Headers) > 0 {
		opts = append(opts, rsspoll.WithHeaders(mapToKeyValuePairs(fc.Headers)...))
	}
	if len(fc.Labels) > 0 {
		opts = append(opts, rsspoll.WithLabels(mapToKeyValuePairs(fc.Labels)...))
	}
	if len(fc.UserAgents) > 0 {
		opts = append(opts, rsspoll.WithFeedUserAgents(fc.UserAgents...))
	}

	return rsspoll.NewFeed(fc.Name, fc.URL, opts...)
}

func buildGrid(cfg *Config, gc GridConfig) ([]rsspoll.Feed, error) {
	opts := []rsspoll.GridOption{
		rsspoll.WithURLTemplate(gc.URLTemplate),
		rsspoll.WithDimensions(gc.Dimensions),
		rsspoll.WithGridBackoff(orDefault(gc.Backoff, cfg.Backoff)),
		rsspoll.WithGridTimeout(orDefault(gc.Timeout, cfg.Timeout)),
	}

	if gc.RateLimit > 0 {
		opts = append(opts, rsspoll.WithGridRateLimit(gc.RateLimit))
	}
	if len(gc.Headers) > 0 {
		opts = append(opts, rsspoll.WithGridHeaders(mapToKeyValuePairs(gc.Headers)...))
	}
	if len(gc.Labels) > 0 {
		opts = append(opts, rsspoll.WithGridLabels(mapToKeyValuePairs(gc.Labels)...))
	}
	if len(gc.UserAgents) > 0 {
		opts = append(opts, rsspoll.WithGridUserAgents(gc.UserAgents...))
	}

	return rsspoll.NewFeedGrid(gc.Name, opts...)
}

// orDefault returns d, or fallback when d is unset.
func orDefault(d, fallback Duration) time.Duration {
	if d == 0 {
		return fallback.Duration()
	}
	return d.Duration()
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

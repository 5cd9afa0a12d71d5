package rsspoll

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"text/template"
)

// NewFeedGrid creates one feed per combination of dimension values by
// expanding a URL template.
//
// The URL template uses text/template syntax. Dimension values are
// URL-encoded before interpolation. Missing template keys cause an error.
//
// Each feed is named "base-val1-val2" with values taken in sorted key order,
// and is labelled with its dimension values. Static labels from
// [WithGridLabels] take precedence on collision.
//
// Example:
//
//	feeds, err := rsspoll.NewFeedGrid("news",
//	    rsspoll.WithURLTemplate("https://example.com/{{.lang}}/{{.category}}.rss"),
//	    rsspoll.WithDimensions(map[string][]string{
//	        "lang":     {"en", "ru"},
//	        "category": {"sports", "science"},
//	    }),
//	)
//	// 4 feeds: news-sports-en, news-sports-ru, news-science-en, news-science-ru
func NewFeedGrid(baseName string, opts ...GridOption) ([]Feed, error) {
	if strings.TrimSpace(baseName) == "" {
		return nil, errors.New("base name cannot be empty")
	}
	if strings.Contains(baseName, "/") {
		return nil, errors.New("base name cannot contain '/'")
	}

	cfg := &gridConfig{
		staticLabels: make(map[string]string),
		headers:      make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.urlTemplate == "" {
		return nil, errors.New("URL template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	// missingkey=error so a typo in the template fails here, not at fetch time
	tmpl, err := template.New("url").Option("missingkey=error").Parse(cfg.urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid URL template: %w", err)
	}

	shared := cfg.feedOptions()
	cells := expandGrid(baseName, cfg.dimensions)

	feeds := make([]Feed, 0, len(cells))
	for _, cell := range cells {
		var u strings.Builder
		if err := tmpl.Execute(&u, cell.escaped); err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}

		feedOpts := append([]FeedOption{withLabelSets(cell.values, cfg.staticLabels)}, shared...)
		f, err := NewFeed(cell.name, u.String(), feedOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create feed '%s': %w", cell.name, err)
		}
		feeds = append(feeds, f)
	}

	return feeds, nil
}

// feedOptions returns the settings every feed of the grid shares. Zero
// values are left out so the feed defaults apply.
func (cfg *gridConfig) feedOptions() []FeedOption {
	var opts []FeedOption
	if len(cfg.headers) > 0 {
		opts = append(opts, withHeaderSet(cfg.headers))
	}
	if cfg.timeout > 0 {
		opts = append(opts, WithTimeout(cfg.timeout))
	}
	if cfg.backoff > 0 {
		opts = append(opts, WithBackoff(cfg.backoff))
	}
	if cfg.rateLimit > 0 {
		opts = append(opts, WithRateLimit(cfg.rateLimit))
	}
	if len(cfg.userAgents) > 0 {
		opts = append(opts, WithFeedUserAgents(cfg.userAgents...))
	}
	return opts
}

// gridCell is one point of the grid.
type gridCell struct {
	name    string
	values  map[string]string // raw, for labels
	escaped map[string]string // query-escaped, for the URL template
}

// expandGrid enumerates every combination of dimension values. Cell n is
// read as a mixed-radix number over the sorted keys with the last key
// varying fastest, so the order is stable and each dimension keeps its
// value order. Names are "base-v1-v2" in the same key order.
func expandGrid(baseName string, dims map[string][]string) []gridCell {
	keys := slices.Sorted(maps.Keys(dims))

	total := 1
	for _, k := range keys {
		total *= len(dims[k])
	}
	if len(keys) == 0 || total == 0 {
		return nil
	}

	cells := make([]gridCell, total)
	parts := make([]string, len(keys))
	for n := range cells {
		cell := gridCell{
			values:  make(map[string]string, len(keys)),
			escaped: make(map[string]string, len(keys)),
		}
		rest := n
		for i := len(keys) - 1; i >= 0; i-- {
			vals := dims[keys[i]]
			v := vals[rest%len(vals)]
			rest /= len(vals)

			parts[i] = v
			cell.values[keys[i]] = v
			cell.escaped[keys[i]] = url.QueryEscape(v)
		}
		cell.name = baseName + "-" + strings.Join(parts, "-")
		cells[n] = cell
	}
	return cells
}

// withLabelSets copies each map into the feed's labels, later maps winning.
func withLabelSets(sets ...map[string]string) FeedOption {
	return func(cfg *feedConfig) error {
		for _, set := range sets {
			maps.Copy(cfg.labels, set)
		}
		return nil
	}
}

// withHeaderSet copies headers already checked by [WithGridHeaders].
func withHeaderSet(h map[string]string) FeedOption {
	return func(cfg *feedConfig) error {
		maps.Copy(cfg.headers, h)
		return nil
	}
}

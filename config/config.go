// Package config provides YAML configuration parsing for rsspoll.
//
// This package lets the rsspoll binary run from a configuration file as an
// alternative to the programmatic SDK.
//
// Example configuration:
//
//	status_port: 8080
//	backoff: 2s
//	timeout: 10s
//
//	feeds:
//	  - name: bbc-world
//	    url: https://feeds.bbci.co.uk/news/world/rss.xml
//	    backoff: 3s
//	    headers:
//	      X-Token: ${FEED_TOKEN}
//
//	grids:
//	  - name: news
//	    url_template: "https://example.com/{{.lang}}/{{.category}}.rss"
//	    dimensions:
//	      lang: [en, ru]
//	      category: [sports, science]
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/rsspoll"
)

const (
	defaultBackoff = 2 * time.Second
	defaultTimeout = 10 * time.Second

	// minBackoff keeps a failing feed from hammering its server.
	minBackoff = 100 * time.Millisecond
)

// Config is the root configuration structure for rsspoll.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// StatusPort serves the status API when non-zero. Defaults to 0 (off).
	StatusPort int `yaml:"status_port"`

	// Backoff is the default base backoff. A failed attempt waits between
	// 1.5x and 2x this value. Defaults to 2s.
	Backoff Duration `yaml:"backoff"`

	// Timeout is the default per-request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// UserAgents replaces the built-in user-agent candidates.
	UserAgents []string `yaml:"user_agents"`

	// Feeds defines individual feeds.
	Feeds []FeedConfig `yaml:"feeds"`

	// Grids defines feed grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// FeedConfig defines a single feed.
type FeedConfig struct {
	// Name must be unique across all feeds.
	Name string `yaml:"name"`

	// URL supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Backoff overrides the global backoff.
	Backoff Duration `yaml:"backoff"`

	// Timeout overrides the global timeout.
	Timeout Duration `yaml:"timeout"`

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit"`

	// Headers are sent with each request. Values support environment
	// variable substitution. User-Agent is not allowed.
	Headers map[string]string `yaml:"headers"`

	// Labels are metadata reported with results.
	Labels map[string]string `yaml:"labels"`

	// UserAgents overrides the global user-agent candidates.
	UserAgents []string `yaml:"user_agents"`
}

// GridConfig defines a feed grid that expands via cartesian product.
//
// For example, with dimensions {lang: [en, ru], category: [sports, science]},
// the grid expands to 4 feeds.
type GridConfig struct {
	// Name is the base name for generated feeds.
	Name string `yaml:"name"`

	// URLTemplate is a Go template for generating feed URLs.
	// Dimension keys are available as template variables: {{.lang}}
	// Supports environment variable substitution.
	URLTemplate string `yaml:"url_template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	// Labels are applied to all generated feeds, overriding dimension labels
	// on collision.
	Labels map[string]string `yaml:"labels"`

	// Headers are sent by all generated feeds.
	Headers map[string]string `yaml:"headers"`

	// Timeout overrides the global timeout for all generated feeds.
	Timeout Duration `yaml:"timeout"`

	// Backoff overrides the global backoff for all generated feeds.
	Backoff Duration `yaml:"backoff"`

	// RateLimit caps each generated feed's requests per second.
	RateLimit float64 `yaml:"rate_limit"`

	// UserAgents overrides the global user-agent candidates.
	UserAgents []string `yaml:"user_agents"`
}

// Duration wraps time.Duration for YAML unmarshalling.
//
// Accepts duration strings ("2s", "500ms") and plain numbers, which are
// read as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if tag := node.ShortTag(); node.Kind == yaml.ScalarNode && (tag == "!!int" || tag == "!!float") {
		secs, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", node.Value, err)
		}
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return fmt.Errorf("invalid duration %q", node.Value)
		}
		if math.Abs(secs) > float64(math.MaxInt64)/float64(time.Second) {
			return fmt.Errorf("invalid duration %q: out of range", node.Value)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part, present when a default was given
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in url, url_template, and header
// values. Defaults are applied for backoff (2s) and timeout (10s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Backoff == 0 {
		cfg.Backoff = Duration(defaultBackoff)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(defaultTimeout)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		return fmt.Errorf("status_port must be between 0 and 65535, got %d", c.StatusPort)
	}
	if err := validateBackoff(c.Backoff, "backoff"); err != nil {
		return err
	}
	if err := validateTimeout(c.Timeout, "timeout"); err != nil {
		return err
	}
	if err := validateUserAgents(c.UserAgents, "user_agents"); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(c.Feeds))
	for i := range c.Feeds {
		f := &c.Feeds[i]

		if f.Name == "" {
			return fmt.Errorf("feeds[%d]: name is required", i)
		}
		ctx := fmt.Sprintf("feeds[%d] (%s)", i, f.Name)
		if strings.Contains(f.Name, "/") {
			return fmt.Errorf("%s: name cannot contain '/'", ctx)
		}

		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("%s: duplicate feed name", ctx)
		}
		names[f.Name] = struct{}{}

		if f.URL == "" {
			return fmt.Errorf("%s: url is required", ctx)
		}
		expanded, err := expandEnvVars(f.URL)
		if err != nil {
			return fmt.Errorf("%s: url: %w", ctx, err)
		}
		f.URL = expanded

		parsedURL, err := url.Parse(f.URL)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", ctx, err)
		}
		if parsedURL.Scheme == "" {
			return fmt.Errorf("%s: url must have a scheme (http:// or https://)", ctx)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", ctx, parsedURL.Scheme)
		}

		if err := expandHeaders(f.Headers, ctx); err != nil {
			return err
		}
		if err := validateOverrides(f.Backoff, f.Timeout, f.RateLimit, f.UserAgents, ctx); err != nil {
			return err
		}
	}

	for i := range c.Grids {
		g := &c.Grids[i]

		if g.Name == "" {
			return fmt.Errorf("grids[%d]: name is required", i)
		}
		ctx := fmt.Sprintf("grids[%d] (%s)", i, g.Name)
		if strings.Contains(g.Name, "/") {
			return fmt.Errorf("%s: name cannot contain '/'", ctx)
		}

		if g.URLTemplate == "" {
			return fmt.Errorf("%s: url_template is required", ctx)
		}
		expanded, err := expandEnvVars(g.URLTemplate)
		if err != nil {
			return fmt.Errorf("%s: url_template: %w", ctx, err)
		}
		g.URLTemplate = expanded

		// fail fast before the SDK tries to use an invalid template
		if _, err := template.New("").Parse(g.URLTemplate); err != nil {
			return fmt.Errorf("%s: invalid url_template: %w", ctx, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("%s: at least one dimension is required", ctx)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("%s: dimension %q has no values", ctx, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if v == "" {
					return fmt.Errorf("%s: dimension %q has an empty value", ctx, dimName)
				}
				// values become part of the feed name, a status API path segment
				if strings.Contains(v, "/") {
					return fmt.Errorf("%s: dimension %q value %q cannot contain '/'", ctx, dimName, v)
				}
				if _, exists := seen[v]; exists {
					return fmt.Errorf("%s: dimension %q has duplicate value %q", ctx, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}

		if err := expandHeaders(g.Headers, ctx); err != nil {
			return err
		}
		if err := validateOverrides(g.Backoff, g.Timeout, g.RateLimit, g.UserAgents, ctx); err != nil {
			return err
		}
	}

	if len(c.Feeds) == 0 && len(c.Grids) == 0 {
		return errors.New("at least one feed or grid must be defined")
	}

	return nil
}

// expandHeaders expands header values in place and rejects User-Agent.
func expandHeaders(h map[string]string, ctx string) error {
	for k, v := range h {
		if strings.EqualFold(k, "User-Agent") {
			return fmt.Errorf("%s: headers: User-Agent is set from user_agents", ctx)
		}
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("%s: headers[%s]: %w", ctx, k, err)
		}
		h[k] = expanded
	}
	return nil
}

// validateOverrides checks per-feed settings. Zero values mean inherit.
func validateOverrides(b, t Duration, rateLimit float64, agents []string, ctx string) error {
	if b != 0 {
		if err := validateBackoff(b, ctx+": backoff"); err != nil {
			return err
		}
	}
	if t != 0 {
		if err := validateTimeout(t, ctx+": timeout"); err != nil {
			return err
		}
	}
	if rateLimit < 0 || math.IsNaN(rateLimit) || math.IsInf(rateLimit, 0) {
		return fmt.Errorf("%s: rate_limit must be a non-negative number, got %v", ctx, rateLimit)
	}
	return validateUserAgents(agents, ctx+": user_agents")
}

func validateBackoff(d Duration, field string) error {
	if d.Duration() < minBackoff {
		return fmt.Errorf("%s must be at least %s, got %s", field, minBackoff, d.Duration())
	}
	if d.Duration() > rsspoll.MaxBackoff {
		return fmt.Errorf("%s must be at most %s, got %s", field, rsspoll.MaxBackoff, d.Duration())
	}
	return nil
}

func validateTimeout(d Duration, field string) error {
	if d.Duration() < time.Second {
		return fmt.Errorf("%s must be at least 1s, got %s", field, d.Duration())
	}
	return nil
}

// validateUserAgents accepts an absent list but not blank entries.
func validateUserAgents(agents []string, field string) error {
	for i, ua := range agents {
		if strings.TrimSpace(ua) == "" {
			return fmt.Errorf("%s[%d] is empty", field, i)
		}
	}
	return nil
}

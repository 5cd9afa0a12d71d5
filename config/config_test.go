package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
feeds:
  - name: world
    url: https://example.com/world.rss
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.StatusPort != 0 {
		t.Errorf("StatusPort = %d, want 0", cfg.StatusPort)
	}
	if cfg.Backoff.Duration() != 2*time.Second {
		t.Errorf("Backoff = %v, want 2s", cfg.Backoff.Duration())
	}
	if cfg.Timeout.Duration() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout.Duration())
	}
	if len(cfg.Feeds) != 1 {
		t.Errorf("len(Feeds) = %d, want 1", len(cfg.Feeds))
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
status_port: 9090
backoff: 3s
timeout: 5s
user_agents:
  - agent/1
  - agent/2

feeds:
  - name: world
    url: https://example.com/world.rss
    backoff: 1.5
    timeout: 2s
    rate_limit: 0.5
    headers:
      Authorization: Bearer token123
    labels:
      lang: en
    user_agents: [agent/3]

grids:
  - name: news
    url_template: "https://example.com/{{.lang}}/{{.category}}.rss"
    dimensions:
      lang: [en, ru]
      category: [sports, science]
    labels:
      source: example
    backoff: 4s
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.StatusPort != 9090 {
		t.Errorf("StatusPort = %d, want 9090", cfg.StatusPort)
	}
	if cfg.Backoff.Duration() != 3*time.Second || cfg.Timeout.Duration() != 5*time.Second {
		t.Errorf("Backoff/Timeout = %v/%v", cfg.Backoff.Duration(), cfg.Timeout.Duration())
	}
	if len(cfg.UserAgents) != 2 {
		t.Errorf("UserAgents = %v", cfg.UserAgents)
	}

	f := cfg.Feeds[0]
	if f.Backoff.Duration() != 1500*time.Millisecond {
		t.Errorf("feed Backoff = %v, want 1.5s from numeric seconds", f.Backoff.Duration())
	}
	if f.Timeout.Duration() != 2*time.Second {
		t.Errorf("feed Timeout = %v, want 2s", f.Timeout.Duration())
	}
	if f.RateLimit != 0.5 {
		t.Errorf("feed RateLimit = %v, want 0.5", f.RateLimit)
	}
	if f.Headers["Authorization"] != "Bearer token123" || f.Labels["lang"] != "en" {
		t.Errorf("feed Headers/Labels = %v/%v", f.Headers, f.Labels)
	}

	g := cfg.Grids[0]
	if len(g.Dimensions["lang"]) != 2 || len(g.Dimensions["category"]) != 2 {
		t.Errorf("grid Dimensions = %v", g.Dimensions)
	}
	if g.Backoff.Duration() != 4*time.Second {
		t.Errorf("grid Backoff = %v, want 4s", g.Backoff.Duration())
	}
}

func TestParse_IntegerBackoffIsSeconds(t *testing.T) {
	cfg, err := Parse([]byte(`
backoff: 2
feeds:
  - name: world
    url: https://example.com/rss
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Backoff.Duration() != 2*time.Second {
		t.Errorf("Backoff = %v, want 2s", cfg.Backoff.Duration())
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("RSSPOLL_TEST_HOST", "feeds.example.com")
	t.Setenv("RSSPOLL_TEST_TOKEN", "s3cret")

	yaml := `
feeds:
  - name: world
    url: https://${RSSPOLL_TEST_HOST}/world.rss
    headers:
      X-Token: ${RSSPOLL_TEST_TOKEN}
      X-Region: ${RSSPOLL_TEST_UNSET:-eu}
grids:
  - name: news
    url_template: "https://${RSSPOLL_TEST_HOST}/{{.lang}}.rss"
    dimensions:
      lang: [en]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	f := cfg.Feeds[0]
	if f.URL != "https://feeds.example.com/world.rss" {
		t.Errorf("URL = %q", f.URL)
	}
	if f.Headers["X-Token"] != "s3cret" {
		t.Errorf("Headers[X-Token] = %q", f.Headers["X-Token"])
	}
	if f.Headers["X-Region"] != "eu" {
		t.Errorf("Headers[X-Region] = %q, want default", f.Headers["X-Region"])
	}
	if cfg.Grids[0].URLTemplate != "https://feeds.example.com/{{.lang}}.rss" {
		t.Errorf("URLTemplate = %q", cfg.Grids[0].URLTemplate)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RSSPOLL_SET", "value")
	t.Setenv("RSSPOLL_EMPTY", "")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"${RSSPOLL_SET}", "value", false},
		{"a-${RSSPOLL_SET}-b", "a-value-b", false},
		{"${RSSPOLL_EMPTY:-fallback}", "", false},
		{"${RSSPOLL_MISSING:-fallback}", "fallback", false},
		{"${RSSPOLL_MISSING:-}", "", false},
		{"${RSSPOLL_MISSING}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandEnvVars(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandEnvVars() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no feeds or grids",
			yaml:    `status_port: 8080`,
			wantErr: "at least one feed or grid",
		},
		{
			name:    "invalid yaml",
			yaml:    "feeds: [",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "bad status port",
			yaml:    "status_port: 70000\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "status_port",
		},
		{
			name:    "backoff too small",
			yaml:    "backoff: 10ms\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "backoff must be at least",
		},
		{
			name:    "negative backoff",
			yaml:    "backoff: -2s\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "backoff must be at least",
		},
		{
			name:    "numeric backoff above maximum",
			yaml:    "backoff: 5000000000\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "backoff must be at most 24h0m0s",
		},
		{
			name:    "backoff above maximum",
			yaml:    "backoff: 25h\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "backoff must be at most",
		},
		{
			name:    "numeric duration out of range",
			yaml:    "backoff: 1e20\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "out of range",
		},
		{
			name:    "timeout too small",
			yaml:    "timeout: 100ms\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "timeout must be at least 1s",
		},
		{
			name:    "invalid duration",
			yaml:    "backoff: soon\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "invalid duration",
		},
		{
			name:    "blank user agent",
			yaml:    "user_agents: ['']\nfeeds: [{name: a, url: 'https://x'}]",
			wantErr: "user_agents[0] is empty",
		},
		{
			name:    "feed without name",
			yaml:    "feeds: [{url: 'https://x'}]",
			wantErr: "name is required",
		},
		{
			name:    "feed without url",
			yaml:    "feeds: [{name: a}]",
			wantErr: "url is required",
		},
		{
			name:    "duplicate feed name",
			yaml:    "feeds: [{name: a, url: 'https://x'}, {name: a, url: 'https://y'}]",
			wantErr: "duplicate feed name",
		},
		{
			name:    "url without scheme",
			yaml:    "feeds: [{name: a, url: 'example.com/rss'}]",
			wantErr: "must have a scheme",
		},
		{
			name:    "ftp url",
			yaml:    "feeds: [{name: a, url: 'ftp://example.com/rss'}]",
			wantErr: "must be http or https",
		},
		{
			name:    "unset env var",
			yaml:    "feeds: [{name: a, url: 'https://${RSSPOLL_DEFINITELY_UNSET}/rss'}]",
			wantErr: "is not set",
		},
		{
			name:    "user agent header",
			yaml:    "feeds: [{name: a, url: 'https://x', headers: {user-agent: curl}}]",
			wantErr: "User-Agent",
		},
		{
			name:    "negative rate limit",
			yaml:    "feeds: [{name: a, url: 'https://x', rate_limit: -1}]",
			wantErr: "rate_limit",
		},
		{
			name:    "feed backoff too small",
			yaml:    "feeds: [{name: a, url: 'https://x', backoff: 1ms}]",
			wantErr: "feeds[0] (a): backoff",
		},
		{
			name:    "feed backoff above maximum",
			yaml:    "feeds: [{name: a, url: 'https://x', backoff: 48h}]",
			wantErr: "feeds[0] (a): backoff must be at most",
		},
		{
			name:    "grid backoff above maximum",
			yaml:    "grids: [{name: g, url_template: 'https://x/{{.lang}}', dimensions: {lang: [en]}, backoff: 48h}]",
			wantErr: "grids[0] (g): backoff must be at most",
		},
		{
			name:    "feed name with slash",
			yaml:    "feeds: [{name: 'news/world', url: 'https://x'}]",
			wantErr: "name cannot contain '/'",
		},
		{
			name:    "grid name with slash",
			yaml:    "grids: [{name: 'a/b', url_template: 'https://x/{{.lang}}', dimensions: {lang: [en]}}]",
			wantErr: "name cannot contain '/'",
		},
		{
			name:    "grid dimension value with slash",
			yaml:    "grids: [{name: g, url_template: 'https://x/{{.section}}', dimensions: {section: [world, 'uk/politics']}}]",
			wantErr: `dimension "section" value "uk/politics" cannot contain '/'`,
		},
		{
			name:    "grid without template",
			yaml:    "grids: [{name: g, dimensions: {lang: [en]}}]",
			wantErr: "url_template is required",
		},
		{
			name:    "grid bad template",
			yaml:    "grids: [{name: g, url_template: 'https://x/{{.lang', dimensions: {lang: [en]}}]",
			wantErr: "invalid url_template",
		},
		{
			name:    "grid without dimensions",
			yaml:    "grids: [{name: g, url_template: 'https://x/{{.lang}}'}]",
			wantErr: "at least one dimension",
		},
		{
			name:    "grid empty dimension",
			yaml:    "grids: [{name: g, url_template: 'https://x/{{.lang}}', dimensions: {lang: []}}]",
			wantErr: "has no values",
		},
		{
			name:    "grid duplicate dimension value",
			yaml:    "grids: [{name: g, url_template: 'https://x/{{.lang}}', dimensions: {lang: [en, en]}}]",
			wantErr: "duplicate value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsspoll.yaml")
	if err := os.WriteFile(path, []byte("feeds: [{name: a, url: 'https://example.com/rss'}]"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Feeds[0].Name != "a" {
		t.Errorf("Feeds[0].Name = %q", cfg.Feeds[0].Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %v, want read error", err)
	}
}

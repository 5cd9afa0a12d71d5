package config

import (
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/rsspoll"
)

func TestBuildFeeds_SingleFeed(t *testing.T) {
	cfg, err := Parse([]byte(`
feeds:
  - name: world
    url: https://example.com/world.rss
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	feeds, err := BuildFeeds(cfg)
	if err != nil {
		t.Fatalf("BuildFeeds() error = %v", err)
	}
	if len(feeds) != 1 {
		t.Fatalf("len(feeds) = %d, want 1", len(feeds))
	}

	f := feeds[0]
	if f.Name() != "world" || f.URL() != "https://example.com/world.rss" {
		t.Errorf("feed = %q %q", f.Name(), f.URL())
	}
	if f.Backoff() != 2*time.Second || f.Timeout() != 10*time.Second {
		t.Errorf("Backoff/Timeout = %v/%v, want global defaults", f.Backoff(), f.Timeout())
	}
}

func TestBuildFeeds_GlobalAndOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
backoff: 5s
timeout: 20s
feeds:
  - name: inherits
    url: https://example.com/a.rss
  - name: overrides
    url: https://example.com/b.rss
    backoff: 1s
    timeout: 3s
    rate_limit: 2
    headers: {X-Token: t}
    labels: {lang: en}
    user_agents: [agent/9]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	feeds, err := BuildFeeds(cfg)
	if err != nil {
		t.Fatalf("BuildFeeds() error = %v", err)
	}

	inherits, overrides := feeds[0], feeds[1]
	if inherits.Backoff() != 5*time.Second || inherits.Timeout() != 20*time.Second {
		t.Errorf("inherits Backoff/Timeout = %v/%v", inherits.Backoff(), inherits.Timeout())
	}
	if overrides.Backoff() != time.Second || overrides.Timeout() != 3*time.Second {
		t.Errorf("overrides Backoff/Timeout = %v/%v", overrides.Backoff(), overrides.Timeout())
	}
	if overrides.RateLimit() != 2 {
		t.Errorf("RateLimit = %v, want 2", overrides.RateLimit())
	}
	if overrides.Headers()["X-Token"] != "t" || overrides.Labels()["lang"] != "en" {
		t.Errorf("Headers/Labels = %v/%v", overrides.Headers(), overrides.Labels())
	}
	if ua := overrides.UserAgents(); len(ua) != 1 || ua[0] != "agent/9" {
		t.Errorf("UserAgents = %v", ua)
	}
}

func TestBuildFeeds_GridExpansion(t *testing.T) {
	cfg, err := Parse([]byte(`
backoff: 3s
grids:
  - name: news
    url_template: "https://example.com/{{.lang}}/{{.category}}.rss"
    dimensions:
      lang: [en, ru]
      category: [sports]
    labels:
      source: example
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	feeds, err := BuildFeeds(cfg)
	if err != nil {
		t.Fatalf("BuildFeeds() error = %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("len(feeds) = %d, want 2", len(feeds))
	}

	want := map[string]string{
		"news-sports-en": "https://example.com/en/sports.rss",
		"news-sports-ru": "https://example.com/ru/sports.rss",
	}
	for _, f := range feeds {
		if want[f.Name()] != f.URL() {
			t.Errorf("feed %q URL = %q", f.Name(), f.URL())
		}
		if f.Labels()["source"] != "example" || f.Labels()["category"] != "sports" {
			t.Errorf("feed %q labels = %v", f.Name(), f.Labels())
		}
		if f.Backoff() != 3*time.Second {
			t.Errorf("feed %q Backoff = %v, want global 3s", f.Name(), f.Backoff())
		}
	}
}

func TestBuildFeeds_GridMissingTemplateKey(t *testing.T) {
	cfg, err := Parse([]byte(`
grids:
  - name: news
    url_template: "https://example.com/{{.region}}.rss"
    dimensions:
      lang: [en]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, err = BuildFeeds(cfg)
	if err == nil || !strings.Contains(err.Error(), `grid "news"`) {
		t.Errorf("BuildFeeds() error = %v, want grid error", err)
	}
}

func TestPollerOptions(t *testing.T) {
	cfg, err := Parse([]byte(`
status_port: 8081
user_agents: [agent/1]
feeds:
  - name: world
    url: https://example.com/world.rss
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := PollerOptions(cfg)
	if err != nil {
		t.Fatalf("PollerOptions() error = %v", err)
	}

	p, err := rsspoll.New(opts...)
	if err != nil {
		t.Fatalf("rsspoll.New() error = %v", err)
	}
	if p.StatusPort() != 8081 {
		t.Errorf("StatusPort() = %d, want 8081", p.StatusPort())
	}
	if len(p.Feeds()) != 1 {
		t.Errorf("len(Feeds()) = %d, want 1", len(p.Feeds()))
	}
}

func TestPollerOptions_DuplicateAcrossFeedAndGrid(t *testing.T) {
	cfg, err := Parse([]byte(`
feeds:
  - name: news-en
    url: https://example.com/a.rss
grids:
  - name: news
    url_template: "https://example.com/{{.lang}}.rss"
    dimensions:
      lang: [en]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := PollerOptions(cfg)
	if err != nil {
		t.Fatalf("PollerOptions() error = %v", err)
	}
	if _, err := rsspoll.New(opts...); err == nil {
		t.Error("rsspoll.New() expected duplicate name error, got nil")
	}
}

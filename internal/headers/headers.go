package headers

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	HeaderUserAgent      = "User-Agent"
	HeaderAccept         = "Accept"
	HeaderAcceptLanguage = "Accept-Language"
	HeaderAcceptEncoding = "Accept-Encoding"
)

// DefaultUserAgents is the candidate list used when no list is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.4; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.2478.67",
}

// static browser-like headers sent alongside the rotating user-agent
var baseHeaders = map[string]string{
	HeaderAccept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	HeaderAcceptLanguage: "en-US,en;q=0.5",
	HeaderAcceptEncoding: "gzip, deflate, br",
	"DNT":                "1",
	"Sec-Fetch-Dest":     "document",
	"Sec-Fetch-Mode":     "navigate",
	"Sec-Fetch-Site":     "none",
}

// Generator produces header sets with a randomly chosen user-agent.
//
// Generator is safe for concurrent use.
type Generator struct {
	userAgents []string

	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a [Generator] drawing user-agents from userAgents.
//
// If src is nil, a time-seeded PCG source is used. Pass a fixed source in
// tests to make the chosen user-agent deterministic.
//
// Returns an error if the list is empty or contains a blank entry.
func New(userAgents []string, src rand.Source) (*Generator, error) {
	if len(userAgents) == 0 {
		return nil, errors.New("at least one user agent is required")
	}
	for i, ua := range userAgents {
		if strings.TrimSpace(ua) == "" {
			return nil, fmt.Errorf("user agent at index %d is empty", i)
		}
	}

	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}

	return &Generator{
		userAgents: append([]string(nil), userAgents...),
		rnd:        rand.New(src),
	}, nil
}

// Next returns a new header map. The caller owns the returned map.
func (g *Generator) Next() map[string]string {
	g.mu.Lock()
	idx := g.rnd.IntN(len(g.userAgents))
	g.mu.Unlock()

	h := make(map[string]string, len(baseHeaders)+1)
	for k, v := range baseHeaders {
		h[k] = v
	}
	h[HeaderUserAgent] = g.userAgents[idx]
	return h
}

// UserAgents returns a copy of the candidate list.
func (g *Generator) UserAgents() []string {
	return append([]string(nil), g.userAgents...)
}

package headers

import (
	"math/rand/v2"
	"sync"
	"testing"
)

func TestNew_EmptyList(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil) expected error, got nil")
	}
	if _, err := New([]string{}, nil); err == nil {
		t.Error("New([]) expected error, got nil")
	}
}

func TestNew_BlankEntry(t *testing.T) {
	_, err := New([]string{"agent/1.0", "  "}, nil)
	if err == nil {
		t.Fatal("New() expected error for blank user agent, got nil")
	}
}

func TestGenerator_NextDrawsFromList(t *testing.T) {
	candidates := []string{"agent-a/1.0", "agent-b/2.0", "agent-c/3.0"}
	g, err := New(candidates, rand.NewPCG(1, 2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	allowed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		allowed[c] = true
	}

	seen := make(map[string]bool)
	for i := 0; i < 300; i++ {
		h := g.Next()
		ua := h[HeaderUserAgent]
		if ua == "" {
			t.Fatalf("Next()[%q] is empty", HeaderUserAgent)
		}
		if !allowed[ua] {
			t.Fatalf("Next()[%q] = %q, not in candidate list", HeaderUserAgent, ua)
		}
		seen[ua] = true
	}

	// 300 uniform draws over 3 candidates should hit every one
	if len(seen) != len(candidates) {
		t.Errorf("saw %d distinct user agents, want %d", len(seen), len(candidates))
	}
}

func TestGenerator_NextIncludesBrowserHeaders(t *testing.T) {
	g, err := New([]string{"agent/1.0"}, rand.NewPCG(1, 2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	h := g.Next()
	want := map[string]string{
		HeaderUserAgent:      "agent/1.0",
		HeaderAcceptEncoding: "gzip, deflate, br",
		HeaderAcceptLanguage: "en-US,en;q=0.5",
		"DNT":                "1",
		"Sec-Fetch-Dest":     "document",
		"Sec-Fetch-Mode":     "navigate",
		"Sec-Fetch-Site":     "none",
	}
	for k, v := range want {
		if h[k] != v {
			t.Errorf("Next()[%q] = %q, want %q", k, h[k], v)
		}
	}
	if h[HeaderAccept] == "" {
		t.Errorf("Next()[%q] is empty", HeaderAccept)
	}
}

func TestGenerator_NextReturnsFreshMap(t *testing.T) {
	g, _ := New([]string{"agent/1.0"}, nil)

	first := g.Next()
	first[HeaderUserAgent] = "mutated"
	first["X-Extra"] = "1"

	second := g.Next()
	if second[HeaderUserAgent] != "agent/1.0" {
		t.Errorf("mutation leaked into next header set: %q", second[HeaderUserAgent])
	}
	if _, ok := second["X-Extra"]; ok {
		t.Error("mutation leaked into next header set: X-Extra present")
	}
}

func TestGenerator_DeterministicWithFixedSource(t *testing.T) {
	candidates := []string{"a", "b", "c", "d"}
	g1, _ := New(candidates, rand.NewPCG(42, 7))
	g2, _ := New(candidates, rand.NewPCG(42, 7))

	for i := 0; i < 20; i++ {
		ua1 := g1.Next()[HeaderUserAgent]
		ua2 := g2.Next()[HeaderUserAgent]
		if ua1 != ua2 {
			t.Fatalf("draw %d: %q != %q with identical seeds", i, ua1, ua2)
		}
	}
}

func TestGenerator_UserAgentsIsCopy(t *testing.T) {
	input := []string{"a", "b"}
	g, _ := New(input, nil)

	input[0] = "changed"
	got := g.UserAgents()
	if got[0] != "a" {
		t.Errorf("UserAgents()[0] = %q, want %q (input slice was aliased)", got[0], "a")
	}

	got[1] = "changed"
	if g.UserAgents()[1] != "b" {
		t.Error("UserAgents() returned internal slice")
	}
}

func TestGenerator_ConcurrentNext(t *testing.T) {
	g, _ := New(DefaultUserAgents, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if g.Next()[HeaderUserAgent] == "" {
					t.Error("empty user agent under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
}

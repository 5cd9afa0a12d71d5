package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// rssTemplate is a minimal RSS 2.0 document; rsspoll never parses it.
const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>%s %s</title><item><title>Story at %s</title></item></channel></rss>`

// StartMockFeedServer runs a flaky RSS server on addr.
//
// Roughly one request in four fails with a 503 and one in ten is slow, so
// the demo shows both the success path and the backoff path.
// Call this in a goroutine before starting the poller.
func StartMockFeedServer(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rss/{lang}/{category}", func(w http.ResponseWriter, r *http.Request) {
		lang := r.PathValue("lang")
		category := r.PathValue("category")

		roll := rand.IntN(100)
		switch {
		case roll < 25:
			http.Error(w, "feed temporarily unavailable", http.StatusServiceUnavailable)
			return
		case roll < 35:
			time.Sleep(time.Duration(500+rand.IntN(1500)) * time.Millisecond)
		default:
			time.Sleep(time.Duration(50+rand.IntN(150)) * time.Millisecond)
		}

		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprintf(w, rssTemplate, lang, category, time.Now().Format(time.RFC3339))
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}

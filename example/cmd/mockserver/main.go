// Standalone flaky RSS server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/rsspoll run -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"
)

func main() {
	fmt.Println("Mock feed server starting on :9999")
	fmt.Println("GET /rss/{lang}/{category}; ~25% of requests return 503")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rss/{lang}/{category}", func(w http.ResponseWriter, r *http.Request) {
		if rand.IntN(4) == 0 {
			http.Error(w, "feed temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		time.Sleep(time.Duration(50+rand.IntN(150)) * time.Millisecond)

		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>%s %s</title></channel></rss>`,
			r.PathValue("lang"), r.PathValue("category"))
	})

	if err := http.ListenAndServe(":9999", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

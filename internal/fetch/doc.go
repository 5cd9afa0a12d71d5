// Package fetch provides the HTTP client used to retrieve feeds.
//
// This package is internal to rsspoll. [Client] wraps a pooled
// [net/http.Client] with per-request timeouts, a response size limit, and
// decoding of the gzip, deflate and br content encodings that the poller
// advertises in its Accept-Encoding header.
//
// Fetch never returns an error separately: failures, including non-2xx
// statuses reported as [*StatusError], are captured in [Response.Error].
package fetch

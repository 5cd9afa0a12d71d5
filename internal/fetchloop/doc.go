// Package fetchloop implements the fetch-retry loop that drives a single feed.
//
// A [Loop] fetches one URL forever. Each iteration builds a fresh header set,
// issues a GET, and then either emits the response body and loops again
// immediately, or reports the failure and sleeps for a randomized backoff
// before retrying. Transport errors, non-2xx statuses and panics raised while
// fetching are all handled the same way; none of them stops the loop.
//
// The only way out of [Loop.Run] is cancellation of its context.
package fetchloop

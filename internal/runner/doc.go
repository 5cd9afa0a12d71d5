// Package runner drives one fetch-retry loop per feed.
//
// This package is internal to rsspoll. A [Runner] owns a shared HTTP client,
// builds a [fetchloop.Loop] for every configured feed, runs them concurrently
// under an errgroup, and fans every attempt into a single results channel.
//
// Users of the rsspoll library should not need to interact with this package
// directly. Configuration is done through the main rsspoll package.
package runner

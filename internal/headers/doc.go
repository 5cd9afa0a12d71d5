// Package headers builds the request header set sent with every feed fetch.
//
// Each call to [Generator.Next] returns a fresh browser-like header map with a
// User-Agent drawn uniformly from the configured candidate list. Rotating the
// user-agent per attempt keeps the poller from presenting a single fixed
// fingerprint to feed hosts.
//
// Users of the rsspoll library should not need to interact with this package
// directly. User-agent lists are configured through the main rsspoll package.
package headers

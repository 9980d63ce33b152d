// Package infobeamer wraps the hosted info-beamer HTTP API.
//
// The Client authenticates with HTTP basic auth (empty user, API key as
// password), applies a short per-request timeout and classifies failures with
// the services error markers: 404 maps to ErrNotFound, 401 and 403 to
// ErrConfiguration, everything else to ErrTransient or ErrTimeout. Requests
// are never retried.
//
// Reads may be routed through Cached, which stores every response for a short
// TTL, serves the stored copy only when asked to, and collapses concurrent
// requests for the same endpoint.
package infobeamer

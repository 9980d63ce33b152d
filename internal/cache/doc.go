// Package cache provides the short-lived read cache placed in front of the
// hosted info-beamer API.
//
// Redis is used when configured so that overlapping invocations share cached
// listings; otherwise an in-process map with per-entry expiry stands in.
package cache

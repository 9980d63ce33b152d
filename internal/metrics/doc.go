// Package metrics exposes Prometheus gauges describing submissions by
// moderation state and the fleet of info-beamer devices. Values are read from
// the hosted API at scrape time.
package metrics

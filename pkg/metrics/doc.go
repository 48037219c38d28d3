// Package metrics provides Prometheus instrumentation for both Trogdor
// daemons: fault counts by lifecycle state, scheduler wake latency, HTTP
// request counts/durations, and NodeManager delivery/heartbeat health.
// Metrics are registered at package init and exposed over HTTP via
// Handler for scraping.
package metrics

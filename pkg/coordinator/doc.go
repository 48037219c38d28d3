// Package coordinator is the central Trogdor daemon: it fans faults out
// to the NodeManager of every target node and serves the coordinator HTTP
// surface. See coordinator.go for the scheduler and http.go for the HTTP
// surface; nodemanager.go and httpnode.go hold the per-node delivery
// worker and its HTTP transport.
package coordinator

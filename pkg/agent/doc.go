// Package agent is the per-node Trogdor daemon: it schedules the faults
// assigned to this node and exposes them over HTTP. See agent.go for the
// scheduler loop and http.go for the HTTP surface.
package agent

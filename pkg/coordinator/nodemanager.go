/*
Package coordinator implements the central daemon: one NodeManager per
configured node that fans faults out over HTTP with unbounded retry and
heartbeats (spec §4.7), the coordinator's own scheduler over its FaultSet
(spec §4.7's closing paragraph), and the coordinator's HTTP surface (spec
§4.8). Grounded on ducktape's trogdor/coordinator.py and node_manager.py —
but the original's node_manager.py has a missing condition-variable name, an
undefined transmit_queue reference, and an empty forwarder thread body; per
spec §9 these are bugs, not behavior to reproduce, so this package fixes
them rather than transliterating them.
*/
package coordinator

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/clock"
	"github.com/trogdor/trogdor/pkg/fault"
	"github.com/trogdor/trogdor/pkg/metrics"
	"github.com/trogdor/trogdor/pkg/topology"
)

// defaultHeartbeatMs is how often a NodeManager polls GET /status on an
// agent it has nothing to deliver to, so liveness is observable even when
// idle (spec §4.7).
const defaultHeartbeatMs = 10_000

// NodeClient is the transport a NodeManager drives its agent through. The
// real implementation is an HTTP/JSON client (see httpnode.go); tests
// substitute a fake to exercise retry and heartbeat behavior without a
// network.
type NodeClient interface {
	SendFault(ctx context.Context, node topology.Node, name string, spec json.RawMessage) error
	SendHeartbeat(ctx context.Context, node topology.Node) error
}

// queuedFault is one fault waiting for, or currently being retried toward,
// a specific node. dispatchID is a correlation id stamped at enqueue time
// so every retry's log lines for the same delivery attempt can be tied
// together, the same role a Transmission's uuid plays in the coordinator's
// fan-out bookkeeping.
type queuedFault struct {
	name       string
	spec       json.RawMessage
	dispatchID string
}

// NodeStatus is the liveness/assignment view spec §4.8's GET /nodes
// renders for one node. Dispatched lists the faults among Faults that have
// already been handed to this node at least once, distinguishing a fault
// still sitting in the delivery queue from one the agent has acknowledged.
type NodeStatus struct {
	Hostname    string   `json:"hostname"`
	AgentPort   int      `json:"agent_port"`
	Faults      []string `json:"faults"`
	Dispatched  []string `json:"dispatched"`
	LastContact int64    `json:"last_contact"`
}

// NodeManager is the per-node worker spec §4.7 describes: a FIFO delivery
// queue, a closing flag, a last-communication timestamp and a NodeStatus,
// all guarded by one lock (spec §5). It is owned by exactly one
// Coordinator.
type NodeManager struct {
	node   topology.Node
	clock  clock.Clock
	logger zerolog.Logger
	client NodeClient

	heartbeatMs int64

	mu                sync.Mutex
	queue             []queuedFault
	current           *queuedFault
	dispatched        map[string]bool
	closing           bool
	lastCommAttemptMs int64
	status            NodeStatus
	wakeCh            chan struct{}
	done              chan struct{}
}

// NewNodeManager constructs a NodeManager for one target node.
func NewNodeManager(node topology.Node, clk clock.Clock, logger zerolog.Logger, client NodeClient) *NodeManager {
	port := 0
	if node.AgentPort != nil {
		port = *node.AgentPort
	}
	return &NodeManager{
		node:        node,
		clock:       clk,
		logger:      logger.With().Str("node", node.Name).Logger(),
		client:      client,
		heartbeatMs: defaultHeartbeatMs,
		dispatched:  make(map[string]bool),
		wakeCh:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		status: NodeStatus{
			Hostname:  node.Hostname,
			AgentPort: port,
			Faults:    nil,
		},
	}
}

func (m *NodeManager) notify() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

// Enqueue appends a fault to this node's delivery queue (spec §4.7: "FIFO
// fault-delivery queue"). The fault-kind's spec is marshaled once here so
// the send loop only ever does I/O, never JSON construction.
func (m *NodeManager) Enqueue(name string, spec fault.FaultSpec) error {
	raw, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, queuedFault{name: name, spec: raw, dispatchID: uuid.New().String()})
	m.status.Faults = append(m.status.Faults, name)
	m.notify()
	return nil
}

// Shutdown requests cooperative shutdown of this NodeManager's loop.
func (m *NodeManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return
	}
	m.closing = true
	m.notify()
}

// WaitForExit blocks until the NodeManager's loop has returned.
func (m *NodeManager) WaitForExit() {
	<-m.done
}

// Status returns a snapshot of this node's liveness/assignment view.
func (m *NodeManager) Status() NodeStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.status
	out.Faults = append([]string(nil), m.status.Faults...)
	out.Dispatched = make([]string, 0, len(m.dispatched))
	for name := range m.dispatched {
		out.Dispatched = append(out.Dispatched, name)
	}
	sort.Strings(out.Dispatched)
	return out
}

// Run executes the NodeManager loop from spec §4.7: retry the current
// fault indefinitely on transport failure, heartbeat on interval when
// idle, and exit once closing is observed.
func (m *NodeManager) Run() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn().Interface("panic", r).Msg("node manager loop exited unexpectedly")
			m.mu.Lock()
			m.status.LastContact = 0
			m.mu.Unlock()
			close(m.done)
		}
	}()
	for {
		now := m.clock.Get()

		m.mu.Lock()
		if m.current == nil && len(m.queue) > 0 {
			f := m.queue[0]
			m.queue = m.queue[1:]
			m.current = &f
		}
		current := m.current
		m.mu.Unlock()

		if current != nil {
			m.mu.Lock()
			m.lastCommAttemptMs = now
			m.mu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := m.client.SendFault(ctx, m.node, current.name, current.spec)
			cancel()
			if err != nil {
				metrics.NodeManagerDeliveryAttemptsTotal.WithLabelValues(m.node.Name, "failure").Inc()
				m.logger.Warn().Err(err).Str("fault_name", current.name).Str("dispatch_id", current.dispatchID).
					Msg("send_fault failed, will retry")
			} else {
				metrics.NodeManagerDeliveryAttemptsTotal.WithLabelValues(m.node.Name, "success").Inc()
				m.logger.Trace().Str("fault_name", current.name).Str("dispatch_id", current.dispatchID).
					Msg("send_fault succeeded")
				m.mu.Lock()
				m.current = nil
				m.status.LastContact = now
				m.dispatched[current.name] = true
				m.mu.Unlock()
			}
		}

		m.mu.Lock()
		nextRequired := m.lastCommAttemptMs + m.heartbeatMs
		m.mu.Unlock()

		if now >= nextRequired {
			m.mu.Lock()
			m.lastCommAttemptMs = now
			m.mu.Unlock()

			hbTimer := metrics.NewTimer()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := m.client.SendHeartbeat(ctx, m.node)
			cancel()
			hbTimer.ObserveDurationVec(metrics.NodeManagerHeartbeatLatency, m.node.Name)
			if err != nil {
				metrics.NodeManagerHeartbeatFailuresTotal.WithLabelValues(m.node.Name).Inc()
				m.logger.Warn().Err(err).Msg("heartbeat failed")
			} else {
				m.mu.Lock()
				m.status.LastContact = now
				m.mu.Unlock()
			}
		}

		m.mu.Lock()
		if m.closing {
			m.mu.Unlock()
			close(m.done)
			return
		}
		wait := nextRequired - now
		if wait < 0 {
			wait = 0
		}
		hasWork := m.current != nil || len(m.queue) > 0
		m.mu.Unlock()

		// A fault awaiting delivery (fresh or retrying after failure) skips
		// the wait entirely and loops straight back to another send
		// attempt, exactly as spec §4.7's pseudocode directs.
		if hasWork {
			continue
		}
		timer := time.NewTimer(time.Duration(wait) * time.Millisecond)
		select {
		case <-m.wakeCh:
		case <-timer.C:
		}
		timer.Stop()
	}
}

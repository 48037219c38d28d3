package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/clock"
	"github.com/trogdor/trogdor/pkg/fault"
	"github.com/trogdor/trogdor/pkg/metrics"
	"github.com/trogdor/trogdor/pkg/registry"
	"github.com/trogdor/trogdor/pkg/topology"
	"github.com/trogdor/trogdor/pkg/trogerr"
)

// maxWakeMs mirrors pkg/agent's cap: the coordinator's scheduler never
// sleeps past this even when no fault bounds the horizon (spec §4.5,
// reused verbatim by §4.7's "same ordering-by-start-time idiom").
const maxWakeMs = 360000

// faultStatus is the coordinator-side lifecycle for a fault it owns. Per
// spec §9's Open Question resolution, this rewrite introduces DISPATCHED
// as distinct from the source's habit of marking a fault FINISHED the
// instant it has been hand to every target node.
type faultStatus int

const (
	coordPending faultStatus = iota
	coordDispatched
)

func (s faultStatus) String() string {
	if s == coordDispatched {
		return "dispatched"
	}
	return "pending"
}

type scheduledFault struct {
	name   string
	spec   fault.FaultSpec
	status faultStatus
}

// Coordinator fans faults out to every node's NodeManager (spec §4.7) and
// serves the coordinator HTTP surface (spec §4.8). It owns its own FaultSet
// view (start-time ordering only — it never deactivates anything) and every
// NodeManager (spec §9's ownership note).
type Coordinator struct {
	clock    clock.Clock
	logger   zerolog.Logger
	registry *registry.Registry
	topo     *topology.Topology

	managers map[string]*NodeManager

	mu      sync.Mutex
	faults  []*scheduledFault
	closing bool
	wakeCh  chan struct{}
	done    chan struct{}

	startedAtMs int64
}

// New builds a Coordinator with one NodeManager per node in the topology.
func New(clk clock.Clock, logger zerolog.Logger, reg *registry.Registry, topo *topology.Topology, client NodeClient) *Coordinator {
	managers := make(map[string]*NodeManager, len(topo.Names()))
	for _, name := range topo.Names() {
		node, _ := topo.Node(name)
		managers[name] = NewNodeManager(node, clk, logger, client)
	}
	return &Coordinator{
		clock:       clk,
		logger:      logger,
		registry:    reg,
		topo:        topo,
		managers:    managers,
		wakeCh:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		startedAtMs: clk.Get(),
	}
}

func (c *Coordinator) notify() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// Ingest resolves kind and inserts a new fault into the coordinator's
// schedule. Duplicate names are rejected, mirroring pkg/agent's ingest
// policy.
func (c *Coordinator) Ingest(name, kind string, rawSpec []byte) error {
	if name == "" {
		return &trogerr.IngestError{Msg: "missing name"}
	}
	if rawSpec == nil {
		return &trogerr.IngestError{Msg: "missing spec"}
	}
	spec, err := c.registry.NewSpec(kind, rawSpec)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.faults {
		if f.name == name {
			return &trogerr.IngestError{Msg: "fault name \"" + name + "\" already in use"}
		}
	}
	c.faults = append(c.faults, &scheduledFault{name: name, spec: spec, status: coordPending})
	sort.SliceStable(c.faults, func(i, j int) bool {
		return c.faults[i].spec.StartMs() < c.faults[j].spec.StartMs()
	})
	metrics.FaultsByState.WithLabelValues("coordinator", coordPending.String()).Inc()
	c.notify()
	return nil
}

// targetNodes resolves which nodes a spec should be dispatched to: its own
// TargetNodes() if it implements fault.NodeTargeter, else every node in the
// topology (spec §9's Open Question resolution).
func (c *Coordinator) targetNodes(spec fault.FaultSpec) []string {
	if t, ok := spec.(fault.NodeTargeter); ok {
		return t.TargetNodes()
	}
	return c.topo.Names()
}

// Shutdown requests cooperative shutdown of the coordinator and every
// NodeManager it owns.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return
	}
	c.closing = true
	c.notify()
}

// WaitForExit blocks until the coordinator's scheduler loop and every
// NodeManager have returned.
func (c *Coordinator) WaitForExit() {
	<-c.done
}

// Status is the GET /status response shape (spec §4.8), identical in
// shape to the agent's.
type Status struct {
	StartedTimeMs  int64  `json:"started_time_ms"`
	StartedTimeStr string `json:"started_time_str"`
}

// Status returns the coordinator's startup time.
func (c *Coordinator) Status() Status {
	return Status{
		StartedTimeMs:  c.startedAtMs,
		StartedTimeStr: time.UnixMilli(c.startedAtMs).Local().Format(time.RFC3339),
	}
}

// NodeView is one entry in GET /nodes (spec §4.8).
type NodeView struct {
	Hostname    string   `json:"hostname"`
	AgentPort   int      `json:"agent_port"`
	Faults      []string `json:"faults"`
	Dispatched  []string `json:"dispatched"`
	LastContact int64    `json:"last_contact"`
}

// Nodes returns the current view of every configured node for GET /nodes.
func (c *Coordinator) Nodes() map[string]NodeView {
	out := make(map[string]NodeView, len(c.managers))
	for name, mgr := range c.managers {
		st := mgr.Status()
		out[name] = NodeView{
			Hostname:    st.Hostname,
			AgentPort:   st.AgentPort,
			Faults:      st.Faults,
			Dispatched:  st.Dispatched,
			LastContact: st.LastContact,
		}
	}
	return out
}

// Run starts every NodeManager and the coordinator's own scheduler loop. It
// blocks until shutdown drains.
func (c *Coordinator) Run() {
	var wg sync.WaitGroup
	for _, mgr := range c.managers {
		wg.Add(1)
		go func(m *NodeManager) {
			defer wg.Done()
			m.Run()
		}(mgr)
	}

	c.schedulerLoop()

	for _, mgr := range c.managers {
		mgr.Shutdown()
	}
	wg.Wait()
	close(c.done)
}

// schedulerLoop mirrors pkg/agent's scheduler shape (spec §4.5), scoped to
// the coordinator's simpler job: pick due faults off the start-time
// ordering and enqueue a Transmission to every target node's NodeManager
// instead of invoking activate/deactivate hooks directly (spec §4.7).
func (c *Coordinator) schedulerLoop() {
	for {
		now := c.clock.Get()

		c.mu.Lock()
		toDispatch, nextWake := c.collectDue(now)
		c.mu.Unlock()

		for _, f := range toDispatch {
			for _, nodeName := range c.targetNodes(f.spec) {
				mgr, ok := c.managers[nodeName]
				if !ok {
					c.logger.Warn().Str("node", nodeName).Str("fault_name", f.name).
						Msg("fault targets unknown node")
					continue
				}
				if err := mgr.Enqueue(f.name, f.spec); err != nil {
					c.logger.Warn().Err(err).Str("node", nodeName).Str("fault_name", f.name).
						Msg("failed to enqueue fault")
				}
			}
			c.mu.Lock()
			f.status = coordDispatched
			c.mu.Unlock()
			metrics.FaultsByState.WithLabelValues("coordinator", coordPending.String()).Dec()
			metrics.FaultsByState.WithLabelValues("coordinator", coordDispatched.String()).Inc()
		}

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		timeout := nextWake - now
		if timeout < 0 {
			timeout = 0
		}
		timer := time.NewTimer(time.Duration(timeout) * time.Millisecond)
		select {
		case <-c.wakeCh:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// collectDue walks the coordinator's start-time ordering exactly like
// pkg/agent's collectStartable: take every PENDING fault whose start_ms <=
// now, and report the next candidate wake time, capped at now+maxWakeMs.
// Must be called with c.mu held.
func (c *Coordinator) collectDue(now int64) (toDispatch []*scheduledFault, nextWake int64) {
	nextWake = now + maxWakeMs
	for _, f := range c.faults {
		if f.spec.StartMs() > now {
			if f.spec.StartMs() < nextWake {
				nextWake = f.spec.StartMs()
			}
			break
		}
		if f.status == coordPending {
			toDispatch = append(toDispatch, f)
		}
	}
	return
}

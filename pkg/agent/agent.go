/*
Package agent implements the per-node daemon: the fault scheduler core
(spec §4.5) and its HTTP surface (spec §4.6). It is grounded on ducktape's
trogdor/agent.py, translated from CPython threading primitives (a
threading.Condition guarding the fault set) into a buffered wake channel —
the idiomatic Go substitute for "cond.wait with timeout", since
sync.Cond has no timed wait. The scheduler loop's shape — collect startable,
collect endable, activate outside the lock, deactivate outside the lock,
check closing, wait — is unchanged from the original.
*/
package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/clock"
	"github.com/trogdor/trogdor/pkg/fault"
	"github.com/trogdor/trogdor/pkg/metrics"
	"github.com/trogdor/trogdor/pkg/registry"
	"github.com/trogdor/trogdor/pkg/trogerr"
)

// maxWakeMs is the cap spec §4.5 names: the scheduler never sleeps longer
// than six minutes even when no fault bounds the horizon.
const maxWakeMs = 360000

// Agent is the per-node daemon. Its FaultSet and closing flag are the one
// pair of state spec §5 says is protected by a single lock; the wake
// channel is the condition variable's Go equivalent.
type Agent struct {
	NodeName string

	clock    clock.Clock
	logger   zerolog.Logger
	registry *registry.Registry

	mu      sync.Mutex
	faults  *fault.Set
	closing bool
	wakeCh  chan struct{}
	done    chan struct{}

	startedAtMs int64
}

// New constructs an Agent. Call Run to start its scheduler loop.
func New(nodeName string, clk clock.Clock, logger zerolog.Logger, reg *registry.Registry) *Agent {
	return &Agent{
		NodeName:    nodeName,
		clock:       clk,
		logger:      logger,
		registry:    reg,
		faults:      fault.NewSet(),
		wakeCh:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		startedAtMs: clk.Get(),
	}
}

func (a *Agent) notify() {
	select {
	case a.wakeCh <- struct{}{}:
	default:
	}
}

// Ingest builds and inserts a fault from a resolved kind + raw spec JSON,
// implementing the PUT /faults path of spec §4.6. Duplicate names are
// rejected with a *trogerr.IngestError, per the rewrite recommendation in
// spec §9 (the original allows them).
func (a *Agent) Ingest(name, kind string, rawSpec []byte) error {
	if name == "" {
		return &trogerr.IngestError{Msg: "missing name"}
	}
	if rawSpec == nil {
		return &trogerr.IngestError{Msg: "missing spec"}
	}
	spec, err := a.registry.NewSpec(kind, rawSpec)
	if err != nil {
		return err
	}
	f, err := a.registry.NewFault(name, a.logger, spec)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.faults.Has(name) {
		return &trogerr.IngestError{Msg: fmt.Sprintf("fault name %q already in use", name)}
	}
	a.faults.Insert(f)
	metrics.FaultsByState.WithLabelValues("agent", fault.Pending.String()).Inc()
	a.notify()
	return nil
}

// Faults returns a snapshot of every fault record, in start-time order,
// for GET /faults.
func (a *Agent) Faults() []fault.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	faults := a.faults.ByStartTime()
	out := make([]fault.Record, len(faults))
	for i, f := range faults {
		out[i] = f.ToRecord()
	}
	return out
}

// Status is the GET /status response shape from spec §4.6.
type Status struct {
	StartedTimeMs  int64  `json:"started_time_ms"`
	StartedTimeStr string `json:"started_time_str"`
}

// Status returns the daemon's startup time.
func (a *Agent) Status() Status {
	return Status{
		StartedTimeMs:  a.startedAtMs,
		StartedTimeStr: time.UnixMilli(a.startedAtMs).Local().Format(time.RFC3339),
	}
}

// Shutdown requests cooperative shutdown (spec §5): set closing, wake the
// scheduler. It is idempotent — issuing it twice is a no-op the second
// time (spec §8).
func (a *Agent) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing {
		return
	}
	a.closing = true
	a.notify()
}

// WaitForExit blocks until the scheduler loop has fully drained and
// returned.
func (a *Agent) WaitForExit() {
	<-a.done
}

// Run executes the scheduler loop until Shutdown is called and the loop
// drains. It is the single writer of every fault's state (spec §4.5) and
// returns only once shutdown is complete, after which Run's caller should
// stop the HTTP server.
func (a *Agent) Run() {
	var prevWake int64 = -1
	for {
		now := a.clock.Get()
		if prevWake >= 0 && now > prevWake {
			metrics.SchedulerWakeLatency.WithLabelValues("agent").Observe(float64(now-prevWake) / 1000)
		}

		a.mu.Lock()
		toStart, nextWakeS := a.collectStartable(now)
		toEnd, nextWakeE := a.collectEndable(now)
		a.mu.Unlock()

		nextWake := nextWakeS
		if nextWakeE < nextWake {
			nextWake = nextWakeE
		}
		prevWake = nextWake

		for _, f := range toStart {
			if err := f.Start(); err != nil {
				a.logger.Warn().Err(err).Str("fault_name", f.Name).Msg("fault activate failed")
				metrics.HookErrorsTotal.WithLabelValues("activate").Inc()
				metrics.FaultsByState.WithLabelValues("agent", fault.Pending.String()).Dec()
				metrics.FaultsByState.WithLabelValues("agent", fault.Finished.String()).Inc()
				continue
			}
			metrics.FaultActivationsTotal.WithLabelValues(f.Spec.Kind()).Inc()
			metrics.FaultsByState.WithLabelValues("agent", fault.Pending.String()).Dec()
			metrics.FaultsByState.WithLabelValues("agent", fault.Active.String()).Inc()
			// Immediate completion: a fault whose end_ms has already
			// passed (or equals now, per spec §8's start_ms==end_ms
			// boundary) finishes in this same pass.
			if fault.EndMs(f.Spec) <= now {
				toEnd = append(toEnd, f)
			}
		}
		for _, f := range toEnd {
			if err := f.End(); err != nil {
				a.logger.Warn().Err(err).Str("fault_name", f.Name).Msg("fault deactivate failed")
				metrics.HookErrorsTotal.WithLabelValues("deactivate").Inc()
			}
			metrics.FaultDeactivationsTotal.WithLabelValues(f.Spec.Kind()).Inc()
			metrics.FaultsByState.WithLabelValues("agent", fault.Active.String()).Dec()
			metrics.FaultsByState.WithLabelValues("agent", fault.Finished.String()).Inc()
		}

		a.mu.Lock()
		if a.closing {
			for _, f := range a.faults.ByStartTime() {
				if f.State() == fault.Active {
					if err := f.End(); err != nil {
						a.logger.Warn().Err(err).Str("fault_name", f.Name).Msg("fault deactivate failed during shutdown")
						metrics.HookErrorsTotal.WithLabelValues("deactivate").Inc()
					}
					metrics.FaultDeactivationsTotal.WithLabelValues(f.Spec.Kind()).Inc()
					metrics.FaultsByState.WithLabelValues("agent", fault.Active.String()).Dec()
					metrics.FaultsByState.WithLabelValues("agent", fault.Finished.String()).Inc()
				}
			}
			a.mu.Unlock()
			close(a.done)
			return
		}
		a.mu.Unlock()

		timeout := nextWake - now
		if timeout < 0 {
			timeout = 0
		}
		timer := time.NewTimer(time.Duration(timeout) * time.Millisecond)
		select {
		case <-a.wakeCh:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// collectStartable walks the FaultSet in start-time order, taking every
// PENDING fault whose start_ms <= now, and reports the next candidate wake
// time: the start_ms of the first fault it didn't take, capped at
// now+maxWakeMs (which is also the value when no fault bounds the horizon).
// Must be called with a.mu held (spec §4.5).
func (a *Agent) collectStartable(now int64) (toStart []*fault.Fault, nextWake int64) {
	nextWake = now + maxWakeMs
	for _, f := range a.faults.ByStartTime() {
		if f.Spec.StartMs() > now {
			if f.Spec.StartMs() < nextWake {
				nextWake = f.Spec.StartMs()
			}
			break
		}
		if f.State() == fault.Pending {
			toStart = append(toStart, f)
		}
	}
	return
}

// collectEndable is collectStartable's symmetric counterpart over the
// end-time ordering, taking ACTIVE faults whose end_ms <= now.
func (a *Agent) collectEndable(now int64) (toEnd []*fault.Fault, nextWake int64) {
	nextWake = now + maxWakeMs
	for _, f := range a.faults.ByEndTime() {
		end := fault.EndMs(f.Spec)
		if end > now {
			if end < nextWake {
				nextWake = end
			}
			break
		}
		if f.State() == fault.Active {
			toEnd = append(toEnd, f)
		}
	}
	return
}

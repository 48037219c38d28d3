/*
Package fault holds Trogdor's data model: FaultSpec, Fault and its
PENDING/ACTIVE/FINISHED state machine, and the dual-ordered FaultSet both
daemons schedule from. It is grounded on ducktape's fault.py, fault_spec.py
and fault_set.py, translated from Python's exception-based control flow
(start()/end() re-raising past a try/except) into Go's explicit error
returns, with no other change of behavior.
*/
package fault

import (
	"github.com/trogdor/trogdor/pkg/trogerr"
)

// State is one of the three states a Fault may occupy. It only ever advances
// forward: Pending -> Active -> Finished, never backward, and a Finished
// fault is never re-activated (spec §3).
type State int

const (
	Pending State = iota
	Active
	Finished
)

// String renders the wire-format spelling used in fault-status JSON (spec
// §6): "pending" | "active" | "finished".
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalJSON renders State as its wire-format string.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// FaultSpec is the immutable, typed description of a fault: its kind
// discriminator and timing. Concrete kinds (e.g. noop.Spec) embed BaseSpec
// and may carry additional kind-specific payload fields of their own (spec
// §3). Specs are built once, by the registry, and never mutated afterward.
type FaultSpec interface {
	Kind() string
	StartMs() int64
	DurationMs() int64
}

// EndMs computes start_ms + duration_ms for any FaultSpec, per spec §3.
func EndMs(s FaultSpec) int64 {
	return s.StartMs() + s.DurationMs()
}

// NodeTargeter is the optional extension point spec §9 describes for
// target_nodes(): a FaultSpec may implement it to select a subset of the
// topology. When a spec doesn't implement it, the coordinator targets every
// node (see pkg/coordinator).
type NodeTargeter interface {
	TargetNodes() []string
}

// BaseSpec is the common fields every concrete FaultSpec embeds: the kind
// discriminator and the start/duration timing pair. It implements FaultSpec
// on its own, so a kind with no extra payload (noop.Spec) needs nothing
// more.
type BaseSpec struct {
	KindName   string `json:"kind"`
	Start      int64  `json:"start_ms"`
	Duration   int64  `json:"duration_ms"`
}

func (b BaseSpec) Kind() string       { return b.KindName }
func (b BaseSpec) StartMs() int64     { return b.Start }
func (b BaseSpec) DurationMs() int64  { return b.Duration }

// Hooks are the kind-specific activate/deactivate behaviors a concrete fault
// implementation supplies; the registry's fault constructor produces one of
// these per fault instance. This is the Go shape of ducktape's abstract
// _activate()/_deactivate() pair.
type Hooks interface {
	Activate() error
	Deactivate() error
}

// Fault is one scheduled disruption: a name, its spec, its current state,
// and the kind-specific hooks that actually do the disrupting. Mutated only
// by the scheduler loop that owns it (spec §3); callers outside that loop
// only ever read a snapshot.
type Fault struct {
	Name  string
	Spec  FaultSpec
	hooks Hooks
	state State
}

// New constructs a Fault in the Pending state.
func New(name string, spec FaultSpec, hooks Hooks) *Fault {
	return &Fault{Name: name, Spec: spec, hooks: hooks, state: Pending}
}

// State returns the fault's current lifecycle state.
func (f *Fault) State() State { return f.state }

// Start transitions Pending -> Active, invoking the activate hook. If the
// hook fails, the fault jumps straight to Finished (never Active) and a
// *trogerr.HookError is returned for the caller to log at WARN and swallow
// (spec §4.5, §7). Calling Start from any state but Pending is a
// *trogerr.StateError.
func (f *Fault) Start() error {
	if f.state != Pending {
		return &trogerr.StateError{Fault: f.Name, From: f.state.String(), To: "active"}
	}
	if err := f.hooks.Activate(); err != nil {
		f.state = Finished
		return &trogerr.HookError{Fault: f.Name, Phase: "activate", Err: err}
	}
	f.state = Active
	return nil
}

// End transitions Active -> Finished, invoking the deactivate hook. Calling
// End from any state but Active is a *trogerr.StateError (spec §4.5: "a
// request to end a fault not in ACTIVE is an error surfaced to the
// caller"). A failing deactivate hook still finishes the fault; the caller
// gets back a *trogerr.HookError to log at WARN and swallow.
func (f *Fault) End() error {
	if f.state != Active {
		return &trogerr.StateError{Fault: f.Name, From: f.state.String(), To: "finished"}
	}
	err := f.hooks.Deactivate()
	f.state = Finished
	if err != nil {
		return &trogerr.HookError{Fault: f.Name, Phase: "deactivate", Err: err}
	}
	return nil
}

// ForceFinished marks the fault Finished without invoking any hook. Nothing
// in this module calls it: shutdown draining in pkg/agent goes through End.
func (f *Fault) ForceFinished() { f.state = Finished }

// Record is the wire-format fault-record from spec §6:
// { name, spec, status: { state } }.
type Record struct {
	Name   string       `json:"name"`
	Spec   FaultSpec    `json:"spec"`
	Status StatusRecord `json:"status"`
}

// StatusRecord is the wire-format fault-status from spec §6.
type StatusRecord struct {
	State State `json:"state"`
}

// ToRecord snapshots the fault into its wire representation.
func (f *Fault) ToRecord() Record {
	return Record{Name: f.Name, Spec: f.Spec, Status: StatusRecord{State: f.state}}
}

package fault

import "sort"

// Set is the dual-ordered container from spec §3/§4.4: every fault it holds
// appears in both an ascending-by-start_ms ordering and an ascending-by-
// end_ms ordering, ties broken by insertion order. Trogdor's cardinalities
// are small (tens of concurrent faults), so Insert does a full stable
// re-sort rather than maintaining either ordering incrementally — exactly
// the tradeoff spec §4.4 sanctions.
//
// Set is not safe for concurrent use on its own; it is owned by exactly one
// daemon and mutated only while that daemon holds its scheduler lock (spec
// §3, §5).
type Set struct {
	byStart []*Fault
	byEnd   []*Fault
}

// NewSet returns an empty FaultSet.
func NewSet() *Set {
	return &Set{}
}

// Insert adds f to both orderings.
func (s *Set) Insert(f *Fault) {
	s.byStart = append(s.byStart, f)
	s.byEnd = append(s.byEnd, f)
	sort.SliceStable(s.byStart, func(i, j int) bool {
		return s.byStart[i].Spec.StartMs() < s.byStart[j].Spec.StartMs()
	})
	sort.SliceStable(s.byEnd, func(i, j int) bool {
		return EndMs(s.byEnd[i].Spec) < EndMs(s.byEnd[j].Spec)
	})
}

// ByStartTime returns a snapshot of the faults in ascending start_ms order,
// safe to range over outside the owning lock.
func (s *Set) ByStartTime() []*Fault {
	out := make([]*Fault, len(s.byStart))
	copy(out, s.byStart)
	return out
}

// ByEndTime returns a snapshot of the faults in ascending end_ms order.
func (s *Set) ByEndTime() []*Fault {
	out := make([]*Fault, len(s.byEnd))
	copy(out, s.byEnd)
	return out
}

// FirstToStart returns the fault with the smallest start_ms, if any.
func (s *Set) FirstToStart() (*Fault, bool) {
	if len(s.byStart) == 0 {
		return nil, false
	}
	return s.byStart[0], true
}

// FirstToEnd returns the fault with the smallest end_ms, if any.
func (s *Set) FirstToEnd() (*Fault, bool) {
	if len(s.byEnd) == 0 {
		return nil, false
	}
	return s.byEnd[0], true
}

// Len returns the number of faults held.
func (s *Set) Len() int { return len(s.byStart) }

// Has reports whether a fault with the given name is already present,
// backing the duplicate-name rejection spec §9 recommends (see
// trogerr.IngestError in pkg/agent and pkg/coordinator).
func (s *Set) Has(name string) bool {
	for _, f := range s.byStart {
		if f.Name == name {
			return true
		}
	}
	return false
}

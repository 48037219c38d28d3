/*
Package registry replaces ducktape's dynamic module-walking loader
(platform/loader.py: pkgutil.walk_packages + importlib introspection) with
the explicit, typed registry spec §9's DESIGN NOTES calls for: a
process-wide map from kind string to a pair of constructors, populated by
init()-time self-registration from each kind package (see pkg/fault/noop).

The config file's "modules" list (spec §6) becomes a set of feature flags:
a Registry only resolves kinds whose owning module is in that list, even
though every kind that ever imported its package has already self-registered
into the global table. This mirrors ducktape's "first resolver to find the
symbol wins, else kind not found in {packages}" contract (spec §4.3)
without walking anything at resolution time.
*/
package registry

import (
	"encoding/json"
	"sort"

	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/fault"
	"github.com/trogdor/trogdor/pkg/trogerr"
)

// SpecConstructor builds a concrete FaultSpec from the raw JSON object
// submitted on PUT /faults.
type SpecConstructor func(raw json.RawMessage) (fault.FaultSpec, error)

// FaultConstructor builds the concrete Fault (spec + kind-specific hooks)
// for an already-resolved FaultSpec.
type FaultConstructor func(name string, logger zerolog.Logger, spec fault.FaultSpec) (*fault.Fault, error)

type kindEntry struct {
	module    string
	specCtor  SpecConstructor
	faultCtor FaultConstructor
}

// all is the global, process-wide kind table. Kind packages populate it via
// Register in their init() functions; it never shrinks at runtime.
var all = map[string]kindEntry{}

// Register binds a kind string to its constructor pair under the given
// module name. Called exactly once per kind, from that kind's package
// init(). Panics on a duplicate kind, the same failure mode ducktape's
// loader produces when two modules export the same class name.
func Register(module, kind string, specCtor SpecConstructor, faultCtor FaultConstructor) {
	if _, exists := all[kind]; exists {
		panic("registry: duplicate fault kind " + kind)
	}
	all[kind] = kindEntry{module: module, specCtor: specCtor, faultCtor: faultCtor}
}

// Registry is the per-platform view of the global kind table, scoped to the
// module names enabled in the daemon's config file (spec §6 "modules").
type Registry struct {
	modules []string
	enabled map[string]bool
}

// New returns a Registry that only resolves kinds whose module is in
// modules.
func New(modules []string) *Registry {
	enabled := make(map[string]bool, len(modules))
	for _, m := range modules {
		enabled[m] = true
	}
	sorted := append([]string(nil), modules...)
	sort.Strings(sorted)
	return &Registry{modules: sorted, enabled: enabled}
}

func (r *Registry) lookup(kind string) (kindEntry, error) {
	e, ok := all[kind]
	if !ok || !r.enabled[e.module] {
		return kindEntry{}, &trogerr.ResolutionError{Kind: kind, Modules: r.modules}
	}
	return e, nil
}

// NewSpec resolves kind and constructs its FaultSpec from raw JSON.
func (r *Registry) NewSpec(kind string, raw json.RawMessage) (fault.FaultSpec, error) {
	e, err := r.lookup(kind)
	if err != nil {
		return nil, err
	}
	return e.specCtor(raw)
}

// NewFault resolves spec.Kind() and constructs the concrete Fault.
func (r *Registry) NewFault(name string, logger zerolog.Logger, spec fault.FaultSpec) (*fault.Fault, error) {
	e, err := r.lookup(spec.Kind())
	if err != nil {
		return nil, err
	}
	return e.faultCtor(name, logger, spec)
}

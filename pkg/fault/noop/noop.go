// Package noop provides Trogdor's one built-in, in-tree fault kind:
// NoOpFault. It carries no payload beyond the common kind/start_ms/
// duration_ms fields and its hooks do nothing but log — it exists to
// exercise the registry mechanism end to end (spec §8 scenario 1), the same
// role it plays in ducktape's own test suite.
package noop

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/fault"
	"github.com/trogdor/trogdor/pkg/registry"
)

// Kind is the wire-format kind discriminator for this fault.
const Kind = "NoOpFault"

// Module is the registry module name this kind registers under, enabled by
// default per spec §6 ("modules" defaults to fault + basic_platform).
const Module = "fault"

// Spec is NoOpFault's FaultSpec: just the common fields, no extra payload.
type Spec struct {
	fault.BaseSpec
}

func init() {
	registry.Register(Module, Kind, newSpec, newFault)
}

func newSpec(raw json.RawMessage) (fault.FaultSpec, error) {
	var s Spec
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	s.KindName = Kind
	return s, nil
}

func newFault(name string, logger zerolog.Logger, spec fault.FaultSpec) (*fault.Fault, error) {
	return fault.New(name, spec, &hooks{name: name, log: logger}), nil
}

type hooks struct {
	name string
	log  zerolog.Logger
}

func (h *hooks) Activate() error {
	h.log.Trace().Str("fault_name", h.name).Msg("NoOpFault activate")
	return nil
}

func (h *hooks) Deactivate() error {
	h.log.Trace().Str("fault_name", h.name).Msg("NoOpFault deactivate")
	return nil
}

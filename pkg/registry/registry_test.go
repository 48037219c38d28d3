package registry_test

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/trogdor/trogdor/pkg/fault/noop"
	"github.com/trogdor/trogdor/pkg/registry"
	"github.com/trogdor/trogdor/pkg/trogerr"
)

func TestRegistryResolvesEnabledModule(t *testing.T) {
	r := registry.New([]string{"fault", "basic_platform"})

	spec, err := r.NewSpec("NoOpFault", json.RawMessage(`{"kind":"NoOpFault","start_ms":0,"duration_ms":100}`))
	require.NoError(t, err)
	assert.Equal(t, "NoOpFault", spec.Kind())
	assert.Equal(t, int64(100), spec.DurationMs())

	f, err := r.NewFault("f1", zerolog.Nop(), spec)
	require.NoError(t, err)
	assert.Equal(t, "f1", f.Name)
}

func TestRegistryRejectsDisabledModule(t *testing.T) {
	r := registry.New([]string{"basic_platform"})

	_, err := r.NewSpec("NoOpFault", json.RawMessage(`{"kind":"NoOpFault"}`))
	var resErr *trogerr.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "NoOpFault", resErr.Kind)
}

func TestRegistryRejectsUnknownKind(t *testing.T) {
	r := registry.New([]string{"fault"})

	_, err := r.NewSpec("ShutdownFault", json.RawMessage(`{}`))
	var resErr *trogerr.ResolutionError
	require.ErrorAs(t, err, &resErr)
}

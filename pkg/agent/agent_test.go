package agent

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogdor/trogdor/pkg/clock"
	"github.com/trogdor/trogdor/pkg/fault"
	_ "github.com/trogdor/trogdor/pkg/fault/noop"
	"github.com/trogdor/trogdor/pkg/registry"
)

func newTestAgent(clk clock.Clock) *Agent {
	reg := registry.New([]string{"fault", "basic_platform"})
	return New("node0", clk, zerolog.Nop(), reg)
}

func statesByName(t *testing.T, a *Agent) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, r := range a.Faults() {
		out[r.Name] = r.Status.State.String()
	}
	return out
}

func awaitState(t *testing.T, a *Agent, name, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return statesByName(t, a)[name] == want
	}, 2*time.Second, 2*time.Millisecond, "fault %q never reached state %q", name, want)
}

// TestSchedulerScenario2 reproduces spec §8's literal end-to-end scenario 2
// verbatim: two faults racing a MockClock starting at 100ms.
func TestSchedulerScenario2(t *testing.T) {
	mock := clock.NewMock(100)
	a := newTestAgent(mock)
	go a.Run()
	defer func() {
		a.Shutdown()
		a.WaitForExit()
	}()

	require.NoError(t, a.Ingest("f2", "NoOpFault", []byte(`{"kind":"NoOpFault","start_ms":200,"duration_ms":100}`)))
	require.NoError(t, a.Ingest("f3", "NoOpFault", []byte(`{"kind":"NoOpFault","start_ms":199,"duration_ms":201}`)))

	states := statesByName(t, a)
	assert.Equal(t, "pending", states["f2"])
	assert.Equal(t, "pending", states["f3"])

	mock.Set(199)
	a.notify()
	awaitState(t, a, "f3", "active")
	assert.Equal(t, "pending", statesByName(t, a)["f2"])

	mock.Set(200)
	a.notify()
	awaitState(t, a, "f2", "active")

	mock.Set(300)
	a.notify()
	awaitState(t, a, "f2", "finished")
	assert.Equal(t, "active", statesByName(t, a)["f3"])

	mock.Set(400)
	a.notify()
	awaitState(t, a, "f3", "finished")
	assert.Equal(t, "finished", statesByName(t, a)["f2"])
}

// TestSchedulerScenario1 reproduces scenario 1: a single already-due fault
// activates and finishes in the same scheduler pass.
func TestSchedulerScenario1(t *testing.T) {
	mock := clock.NewMock(100)
	a := newTestAgent(mock)
	go a.Run()
	defer func() {
		a.Shutdown()
		a.WaitForExit()
	}()

	require.NoError(t, a.Ingest("f1", "NoOpFault", []byte(`{"kind":"NoOpFault","start_ms":0,"duration_ms":0}`)))
	awaitState(t, a, "f1", "finished")
}

func TestIngestRejectsDuplicateName(t *testing.T) {
	mock := clock.NewMock(0)
	a := newTestAgent(mock)
	go a.Run()
	defer func() {
		a.Shutdown()
		a.WaitForExit()
	}()

	spec := []byte(`{"kind":"NoOpFault","start_ms":100000,"duration_ms":1000}`)
	require.NoError(t, a.Ingest("dup", "NoOpFault", spec))
	err := a.Ingest("dup", "NoOpFault", spec)
	require.Error(t, err)
}

func TestIngestMissingSpecIsIngestError(t *testing.T) {
	mock := clock.NewMock(0)
	a := newTestAgent(mock)
	go a.Run()
	defer func() {
		a.Shutdown()
		a.WaitForExit()
	}()

	err := a.Ingest("x", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spec")
}

func TestShutdownDrainsActiveFaultsAndIsIdempotent(t *testing.T) {
	mock := clock.NewMock(0)
	a := newTestAgent(mock)
	go a.Run()

	require.NoError(t, a.Ingest("active1", "NoOpFault", []byte(`{"kind":"NoOpFault","start_ms":0,"duration_ms":100000}`)))
	awaitState(t, a, "active1", "active")

	a.Shutdown()
	a.Shutdown() // idempotent: must not block or panic
	a.WaitForExit()

	assert.Equal(t, "finished", statesByName(t, a)["active1"])
}

func TestCollectStartableCapsWakeAtSixMinutes(t *testing.T) {
	mock := clock.NewMock(0)
	a := newTestAgent(mock)
	a.faults.Insert(fault.New("far-future", fault.BaseSpec{KindName: "NoOpFault", Start: 10_000_000, Duration: 1000}, noopHooks{}))

	_, nextWake := a.collectStartable(0)
	assert.Equal(t, int64(maxWakeMs), nextWake)
}

type noopHooks struct{}

func (noopHooks) Activate() error   { return nil }
func (noopHooks) Deactivate() error { return nil }

package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogdor/trogdor/pkg/clock"
	"github.com/trogdor/trogdor/pkg/fault"
	"github.com/trogdor/trogdor/pkg/topology"
)

func noopSpec(startMs, durationMs int64) fault.FaultSpec {
	return fault.BaseSpec{KindName: "NoOpFault", Start: startMs, Duration: durationMs}
}

type fakeNodeClient struct {
	mu          sync.Mutex
	faultCalls  []string
	heartbeats  int
	failSends   int
	failedCount int
}

func (f *fakeNodeClient) SendFault(ctx context.Context, node topology.Node, name string, spec json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failedCount < f.failSends {
		f.failedCount++
		return context.DeadlineExceeded
	}
	f.faultCalls = append(f.faultCalls, name)
	return nil
}

func (f *fakeNodeClient) SendHeartbeat(ctx context.Context, node topology.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return nil
}

func testNode(name string) topology.Node {
	port := 8888
	return topology.Node{Name: name, Hostname: "localhost", AgentPort: &port}
}

func TestNodeManagerDeliversEnqueuedFault(t *testing.T) {
	client := &fakeNodeClient{}
	mgr := NewNodeManager(testNode("n0"), clock.NewWall(), zerolog.Nop(), client)
	go mgr.Run()
	defer func() {
		mgr.Shutdown()
		mgr.WaitForExit()
	}()

	require.NoError(t, mgr.Enqueue("f1", noopSpec(0, 0)))

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.faultCalls) == 1 && client.faultCalls[0] == "f1"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNodeManagerRetriesOnTransportFailure(t *testing.T) {
	client := &fakeNodeClient{failSends: 2}
	mgr := NewNodeManager(testNode("n0"), clock.NewWall(), zerolog.Nop(), client)
	go mgr.Run()
	defer func() {
		mgr.Shutdown()
		mgr.WaitForExit()
	}()

	require.NoError(t, mgr.Enqueue("f1", noopSpec(0, 0)))

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.faultCalls) == 1
	}, 2*time.Second, 5*time.Millisecond)

	client.mu.Lock()
	assert.Equal(t, 2, client.failedCount)
	client.mu.Unlock()
}

func TestNodeManagerShutdownIsIdempotent(t *testing.T) {
	client := &fakeNodeClient{}
	mgr := NewNodeManager(testNode("n0"), clock.NewWall(), zerolog.Nop(), client)
	go mgr.Run()

	mgr.Shutdown()
	mgr.Shutdown()
	mgr.WaitForExit()
}

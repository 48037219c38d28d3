package coordinator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogdor/trogdor/pkg/clock"
	_ "github.com/trogdor/trogdor/pkg/fault/noop"
	"github.com/trogdor/trogdor/pkg/registry"
	"github.com/trogdor/trogdor/pkg/topology"
)

func newTestCoordinator(t *testing.T, clk clock.Clock, client NodeClient, nodeNames ...string) *Coordinator {
	t.Helper()
	nodes := make(map[string]any, len(nodeNames))
	for _, n := range nodeNames {
		nodes[n] = map[string]any{"hostname": "localhost", "trogdor_agent_port": 8888}
	}
	body, err := json.Marshal(map[string]any{"nodes": nodes})
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, body, 0644))
	cfg, err := topology.Load(path)
	require.NoError(t, err)
	reg := registry.New(cfg.Modules)
	return New(clk, zerolog.Nop(), reg, cfg.Topology(), client)
}

func TestCoordinatorDispatchesDueFaultToAllNodes(t *testing.T) {
	client := &fakeNodeClient{}
	mock := clock.NewMock(0)
	c := newTestCoordinator(t, mock, client, "n0", "n1")
	go c.Run()
	defer func() {
		c.Shutdown()
		c.WaitForExit()
	}()

	require.NoError(t, c.Ingest("f1", "NoOpFault", []byte(`{"kind":"NoOpFault","start_ms":0,"duration_ms":1000}`)))
	c.notify()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.faultCalls) == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCoordinatorIngestRejectsDuplicateName(t *testing.T) {
	client := &fakeNodeClient{}
	mock := clock.NewMock(0)
	c := newTestCoordinator(t, mock, client, "n0")
	go c.Run()
	defer func() {
		c.Shutdown()
		c.WaitForExit()
	}()

	spec := []byte(`{"kind":"NoOpFault","start_ms":1000000,"duration_ms":1000}`)
	require.NoError(t, c.Ingest("dup", "NoOpFault", spec))
	err := c.Ingest("dup", "NoOpFault", spec)
	assert.Error(t, err)
}

func TestCoordinatorNodesViewReflectsConfiguredTopology(t *testing.T) {
	client := &fakeNodeClient{}
	mock := clock.NewMock(0)
	c := newTestCoordinator(t, mock, client, "n0")
	go c.Run()
	defer func() {
		c.Shutdown()
		c.WaitForExit()
	}()

	nodes := c.Nodes()
	require.Contains(t, nodes, "n0")
	assert.Equal(t, "localhost", nodes["n0"].Hostname)
	assert.Equal(t, 8888, nodes["n0"].AgentPort)
}

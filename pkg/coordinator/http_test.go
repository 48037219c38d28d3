package coordinator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogdor/trogdor/pkg/clock"
	_ "github.com/trogdor/trogdor/pkg/fault/noop"
	"github.com/trogdor/trogdor/pkg/registry"
	"github.com/trogdor/trogdor/pkg/topology"
)

func newTestCoordinatorServer(t *testing.T) (*Coordinator, http.Handler) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"nodes": map[string]any{"n0": map[string]any{"hostname": "localhost", "trogdor_agent_port": 8888}},
	})
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, body, 0644))
	cfg, err := topology.Load(path)
	require.NoError(t, err)
	reg := registry.New(cfg.Modules)
	c := New(clock.NewMock(0), zerolog.Nop(), reg, cfg.Topology(), &fakeNodeClient{})
	s := NewServer(c, ":0", zerolog.Nop())
	return c, s.srv.Handler
}

func TestCoordinatorHandleNodesListsConfiguredNodes(t *testing.T) {
	_, h := newTestCoordinatorServer(t)
	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Nodes map[string]NodeView `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Nodes, "n0")
	assert.Equal(t, "localhost", resp.Nodes["n0"].Hostname)
}

func TestCoordinatorHandleUnknownPathIs404(t *testing.T) {
	_, h := newTestCoordinatorServer(t)
	req := httptest.NewRequest(http.MethodGet, "/bogus", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Unknown path /bogus\n", rec.Body.String())
}

func TestCoordinatorHandleShutdownIsIdempotent(t *testing.T) {
	c, h := newTestCoordinatorServer(t)
	go c.Run()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPut, "/shutdown", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	c.WaitForExit()
}

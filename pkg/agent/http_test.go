package agent

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogdor/trogdor/pkg/clock"
	_ "github.com/trogdor/trogdor/pkg/fault/noop"
	"github.com/trogdor/trogdor/pkg/registry"
)

func newTestServer() (*Agent, http.Handler) {
	reg := registry.New([]string{"fault", "basic_platform"})
	a := New("node0", clock.NewMock(0), zerolog.Nop(), reg)
	s := NewServer(a, ":0", zerolog.Nop())
	return a, s.srv.Handler
}

func TestHandleStatusReturnsStartupFields(t *testing.T) {
	_, h := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "started_time_ms")
	assert.Contains(t, body, "started_time_str")
}

func TestHandleUnknownPathIs404(t *testing.T) {
	_, h := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Unknown path /nope\n", rec.Body.String())
}

func TestHandlePutFaultsMissingSpecIs400(t *testing.T) {
	_, h := newTestServer()
	body := bytes.NewBufferString(`{"name":"x"}`)
	req := httptest.NewRequest(http.MethodPut, "/faults", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "spec")
}

func TestHandlePutFaultsThenGetRoundTrips(t *testing.T) {
	_, h := newTestServer()
	put := bytes.NewBufferString(`{"name":"f1","spec":{"kind":"NoOpFault","start_ms":1000,"duration_ms":500}}`)
	req := httptest.NewRequest(http.MethodPut, "/faults", put)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/faults", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "f1", resp[0].Name)
}

func TestHandleShutdownIsIdempotent(t *testing.T) {
	a, h := newTestServer()
	go a.Run()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPut, "/shutdown", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	a.WaitForExit()
}

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatusDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(StatusResponse{StartedTimeMs: 42, StartedTimeStr: "x"})
	}))
	defer srv.Close()

	c := New(srv.Listener.Addr().String(), zerolog.Nop())
	status, err := c.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), status.StartedTimeMs)
}

func TestDoReturnsTransportErrorOnHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "missing spec"})
	}))
	defer srv.Close()

	c := New(srv.Listener.Addr().String(), zerolog.Nop())
	err := c.AddFault(context.Background(), "x", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing spec")
}

func TestShutdownSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.Listener.Addr().String(), zerolog.Nop())
	require.NoError(t, c.Shutdown(context.Background()))
}

/*
Package client is Trogdor's CLI-facing blocking JSON/HTTP client (spec
§4.9): get_status, get_faults, add_fault, shutdown, plus the duration and
host:port parsers the CLI flags use. Grounded on ducktape's trogdor/
client.py, translated from its requests-based blocking calls into net/http
with context.Context, and on the teacher's logging conventions for the
optional --verbose TRACE request/response tracing this rewrite restores
(see SUPPLEMENTED FEATURES).
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/trogerr"
)

// Client is a blocking JSON/HTTP client against either daemon's HTTP
// surface (spec §4.6 / §4.8) — both expose /status and /shutdown with an
// identical shape, so one Client type serves both the agent and the
// coordinator.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// New builds a Client against host:port. logger is used only for
// --verbose TRACE request/response tracing; pass zerolog.Nop() to disable
// it entirely.
func New(hostport string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: "http://" + hostport,
		http:    http.DefaultClient,
		logger:  logger,
	}
}

// StatusResponse is spec §4.6/§4.8's GET /status shape.
type StatusResponse struct {
	StartedTimeMs  int64  `json:"started_time_ms"`
	StartedTimeStr string `json:"started_time_str"`
}

// FaultRecord is the client-side decoding of spec §6's fault-record wire
// type. Spec is left as raw JSON rather than pkg/fault.FaultSpec: the
// client has no registry to resolve a kind string back into a concrete Go
// type, and has no need to — it only ever displays or forwards it.
type FaultRecord struct {
	Name   string          `json:"name"`
	Spec   json.RawMessage `json:"spec"`
	Status struct {
		State string `json:"state"`
	} `json:"status"`
}

// NodesResponse is spec §4.8's GET /nodes shape.
type NodesResponse struct {
	Nodes map[string]NodeView `json:"nodes"`
}

// NodeView mirrors pkg/coordinator.NodeView for client-side decoding
// without importing the coordinator package.
type NodeView struct {
	Hostname    string   `json:"hostname"`
	AgentPort   int      `json:"agent_port"`
	Faults      []string `json:"faults"`
	Dispatched  []string `json:"dispatched"`
	LastContact int64    `json:"last_contact"`
}

// GetStatus issues GET /status.
func (c *Client) GetStatus(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

// GetFaults issues GET /faults against an agent. The response is a bare
// array in start-time order (spec §4.6), not a wrapping object.
func (c *Client) GetFaults(ctx context.Context) ([]FaultRecord, error) {
	var out []FaultRecord
	err := c.do(ctx, http.MethodGet, "/faults", nil, &out)
	return out, err
}

// GetNodes issues GET /nodes against a coordinator.
func (c *Client) GetNodes(ctx context.Context) (map[string]NodeView, error) {
	var out NodesResponse
	err := c.do(ctx, http.MethodGet, "/nodes", nil, &out)
	return out.Nodes, err
}

// AddFault issues PUT /faults with the given name and resolved fault-spec
// JSON.
func (c *Client) AddFault(ctx context.Context, name string, spec json.RawMessage) error {
	body := map[string]any{"name": name, "spec": spec}
	return c.do(ctx, http.MethodPut, "/faults", body, nil)
}

// Shutdown issues PUT /shutdown.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/shutdown", nil, nil)
}

// do issues one JSON/HTTP request, tracing it when the client's logger is
// enabled for TRACE (spec §4.9: "any HTTP status >= 400 raises").
func (c *Client) do(ctx context.Context, method, path string, reqBody any, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(raw)
		c.logger.Trace().Str("method", method).Str("path", path).Bytes("body", raw).Msg("request")
	} else {
		c.logger.Trace().Str("method", method).Str("path", path).Msg("request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &trogerr.TransportError{Op: method + " " + path, Err: err}
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &trogerr.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &trogerr.TransportError{Op: method + " " + path, Err: err}
	}
	c.logger.Trace().Str("method", method).Str("path", path).
		Int("status", resp.StatusCode).Bytes("body", raw).Msg("response")

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &errBody)
		msg := errBody.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return &trogerr.TransportError{Op: method + " " + path, Err: fmt.Errorf("%s", msg)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &trogerr.TransportError{Op: method + " " + path, Err: err}
		}
	}
	return nil
}

package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/trogdor/trogdor/pkg/topology"
	"github.com/trogdor/trogdor/pkg/trogerr"
)

// HTTPNodeClient is the production NodeClient: it PUTs fault specs and GETs
// status directly against an agent's HTTP surface (spec §4.6), wrapping
// any failure as a *trogerr.TransportError for NodeManager to log and
// retry against.
type HTTPNodeClient struct {
	http *http.Client
}

// NewHTTPNodeClient builds a NodeClient backed by http.Client.
func NewHTTPNodeClient(httpClient *http.Client) *HTTPNodeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPNodeClient{http: httpClient}
}

func agentBaseURL(node topology.Node) string {
	port := 0
	if node.AgentPort != nil {
		port = *node.AgentPort
	}
	return fmt.Sprintf("http://%s:%d", node.Hostname, port)
}

// SendFault issues PUT /faults against the node's agent.
func (c *HTTPNodeClient) SendFault(ctx context.Context, node topology.Node, name string, spec json.RawMessage) error {
	body, err := json.Marshal(map[string]any{"name": name, "spec": json.RawMessage(spec)})
	if err != nil {
		return &trogerr.TransportError{Op: "send_fault", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, agentBaseURL(node)+"/faults", bytes.NewReader(body))
	if err != nil {
		return &trogerr.TransportError{Op: "send_fault", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return &trogerr.TransportError{Op: "send_fault", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &trogerr.TransportError{Op: "send_fault", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// SendHeartbeat issues GET /status against the node's agent.
func (c *HTTPNodeClient) SendHeartbeat(ctx context.Context, node topology.Node) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agentBaseURL(node)+"/status", nil)
	if err != nil {
		return &trogerr.TransportError{Op: "heartbeat", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &trogerr.TransportError{Op: "heartbeat", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &trogerr.TransportError{Op: "heartbeat", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

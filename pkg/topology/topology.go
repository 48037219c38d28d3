/*
Package topology loads the config file spec §6 defines and builds the
read-only node directory both daemons consult, plus the Platform value that
(per spec §9's Ownership note) owns the Logger, Topology and Registry
together. Grounded on ducktape's platform/topology.py (Node/Topology) and
platform/platform.py (Platform owning log + topology + loaders), adapted
for the config-file shape spec §6 specifies and the registry redesign in
pkg/registry.
*/
package topology

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/registry"
	"github.com/trogdor/trogdor/pkg/trogerr"
)

// Node is one entry in the topology: hostname, optional agent/coordinator
// ports, and a tag list (spec §3).
type Node struct {
	Name            string
	Hostname        string
	AgentPort       *int
	CoordinatorPort *int
	Tags            []string
}

// Topology is the read-only, built-once node directory (spec §3).
type Topology struct {
	nodes map[string]Node
}

// Node looks up a node by name.
func (t *Topology) Node(name string) (Node, bool) {
	n, ok := t.nodes[name]
	return n, ok
}

// Names returns every node name, sorted, for deterministic fan-out and
// /nodes rendering.
func (t *Topology) Names() []string {
	names := make([]string, 0, len(t.nodes))
	for n := range t.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the full node map.
func (t *Topology) All() map[string]Node {
	out := make(map[string]Node, len(t.nodes))
	for k, v := range t.nodes {
		out[k] = v
	}
	return out
}

// nodeConfig is the wire shape of one entry in the config file's "nodes"
// object (spec §6).
type nodeConfig struct {
	Hostname                string   `json:"hostname"`
	TrogdorAgentPort        *int     `json:"trogdor_agent_port"`
	TrogdorCoordinatorPort  *int     `json:"trogdor_coordinator_port"`
	Tags                    []string `json:"tags"`
}

// FileConfig is the top-level config file shape (spec §6).
type FileConfig struct {
	Platform string                `json:"platform"`
	Modules  []string              `json:"modules"`
	Log      LogConfig             `json:"log"`
	Nodes    map[string]nodeConfig `json:"nodes"`
}

// LogConfig is the config file's "log" object.
type LogConfig struct {
	Path string `json:"path"`
}

// defaultModules is spec §6's stated default: fault + basic_platform.
var defaultModules = []string{"fault", "basic_platform"}

// Load reads and parses the config file at path, applying defaults and
// validating it per spec §6: missing "nodes" or a missing per-node
// "hostname" is a fatal *trogerr.ConfigError; any present port outside
// [0, 65535] is a *trogerr.PortError.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &trogerr.ConfigError{Msg: err.Error()}
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &trogerr.ConfigError{Msg: err.Error()}
	}
	if cfg.Platform == "" {
		cfg.Platform = "basic_platform"
	}
	if cfg.Modules == nil {
		cfg.Modules = defaultModules
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = "/dev/stdout"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fatal-at-startup conditions spec §6 names.
func (c *FileConfig) Validate() error {
	if len(c.Nodes) == 0 {
		return &trogerr.ConfigError{Msg: "config has no nodes"}
	}
	for name, n := range c.Nodes {
		if n.Hostname == "" {
			return &trogerr.ConfigError{Msg: "node " + name + " missing hostname"}
		}
		if err := validatePort(name, n.TrogdorAgentPort); err != nil {
			return err
		}
		if err := validatePort(name, n.TrogdorCoordinatorPort); err != nil {
			return err
		}
	}
	return nil
}

func validatePort(node string, port *int) error {
	if port == nil {
		return nil
	}
	if *port < 0 || *port > 65535 {
		return &trogerr.PortError{Node: node, Port: *port}
	}
	return nil
}

// Topology builds the read-only node directory from the parsed config.
func (c *FileConfig) Topology() *Topology {
	nodes := make(map[string]Node, len(c.Nodes))
	for name, n := range c.Nodes {
		nodes[name] = Node{
			Name:            name,
			Hostname:        n.Hostname,
			AgentPort:       n.TrogdorAgentPort,
			CoordinatorPort: n.TrogdorCoordinatorPort,
			Tags:            n.Tags,
		}
	}
	return &Topology{nodes: nodes}
}

// Platform owns the Logger, Topology and Registry together, per spec §9's
// ownership note. The daemon binaries under cmd/ do not use it: they build
// their Topology and Registry directly from the loaded config.
type Platform struct {
	Logger   zerolog.Logger
	Topology *Topology
	Registry *registry.Registry
}

// NewPlatform builds a Platform from a loaded config file and a logger.
func NewPlatform(cfg *FileConfig, logger zerolog.Logger) *Platform {
	return &Platform{
		Logger:   logger,
		Topology: cfg.Topology(),
		Registry: registry.New(cfg.Modules),
	}
}

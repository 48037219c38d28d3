/*
trogdor-agent is the per-node fault daemon (spec §2, §4.5, §4.6): it loads
the named node's entry out of the shared config file, runs the scheduler
core from pkg/agent, and serves that agent's HTTP surface on its configured
trogdor_agent_port. Grounded on the teacher's cmd/warren/main.go — one
cobra root command per binary, flags parsed once in RunE, a metrics server
started alongside the primary listener — adapted to trogdor's single-daemon
(no subcommands) CLI shape from spec §6.
*/
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/trogdor/trogdor/pkg/agent"
	"github.com/trogdor/trogdor/pkg/clock"
	"github.com/trogdor/trogdor/pkg/daemon"
	_ "github.com/trogdor/trogdor/pkg/fault/noop"
	"github.com/trogdor/trogdor/pkg/log"
	"github.com/trogdor/trogdor/pkg/metrics"
	"github.com/trogdor/trogdor/pkg/registry"
	"github.com/trogdor/trogdor/pkg/topology"
)

var rootCmd = &cobra.Command{
	Use:   "trogdor-agent",
	Short: "Trogdor per-node fault-injection agent",
	RunE:  runAgent,
}

func init() {
	rootCmd.Flags().String("config", "", "path to the trogdor config file (required)")
	rootCmd.Flags().String("name", "", "this node's name, as it appears in the config file (required)")
	rootCmd.Flags().Bool("foreground", false, "run in the foreground instead of daemonizing")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "address to serve /metrics on")
	_ = rootCmd.MarkFlagRequired("config")
	_ = rootCmd.MarkFlagRequired("name")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	nodeName, _ := cmd.Flags().GetString("name")
	foreground, _ := cmd.Flags().GetBool("foreground")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	fileCfg, err := topology.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return err
	}
	topo := fileCfg.Topology()
	node, ok := topo.Node(nodeName)
	if !ok {
		err := fmt.Errorf("node %q not found in config", nodeName)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return err
	}
	if node.AgentPort == nil {
		err := fmt.Errorf("node %q has no trogdor_agent_port configured", nodeName)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return err
	}

	if !foreground {
		if err := daemon.Daemonize(); err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
	}

	// double_log: print to stdout immediately, then to the structured log,
	// so an operator tailing stdout sees the launch line even if the
	// configured log path turns out to be bad (spec.md §9 DESIGN NOTES
	// plus the SUPPLEMENTED FEATURES restored from ducktape's agent.py).
	fmt.Printf("Launching trogdor agent pid=%d name=%s\n", os.Getpid(), nodeName)

	logOut, err := log.OpenFile(fileCfg.Log.Path)
	if err != nil {
		return err
	}
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: logOut})
	defer log.Close()

	nodeLog := log.WithNodeName(nodeName)
	nodeLog.Info().Int("pid", os.Getpid()).Str("config", configPath).Msg("launching trogdor agent")

	stopSignals := log.StartSignalHandler()
	defer stopSignals()

	reg := registry.New(fileCfg.Modules)
	a := agent.New(nodeName, clock.NewWall(), nodeLog, reg)
	srv := agent.NewServer(a, fmt.Sprintf(":%d", *node.AgentPort), nodeLog)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			nodeLog.Warn().Err(err).Msg("metrics server exited")
		}
	}()

	go func() {
		a.WaitForExit()
		_ = srv.Close()
	}()

	go a.Run()

	nodeLog.Info().Int("agent_port", *node.AgentPort).Msg("agent HTTP surface listening")
	if err := srv.ListenAndServe(); err != nil {
		nodeLog.Warn().Err(err).Msg("agent HTTP server exited with error")
		return err
	}
	a.WaitForExit()
	return nil
}

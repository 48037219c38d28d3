/*
trogdor-coordinator is the central fan-out daemon (spec §2, §4.7, §4.8): it
loads the full topology, starts one NodeManager per configured node plus
the coordinator's own start-time scheduler, and serves the coordinator
HTTP surface. Structured the same way as cmd/trogdor-agent (same config
loading, logging, daemonize and metrics-server shape); the only material
difference is which pkg/<daemon> type it wires up.
*/
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/trogdor/trogdor/pkg/clock"
	"github.com/trogdor/trogdor/pkg/coordinator"
	"github.com/trogdor/trogdor/pkg/daemon"
	_ "github.com/trogdor/trogdor/pkg/fault/noop"
	"github.com/trogdor/trogdor/pkg/log"
	"github.com/trogdor/trogdor/pkg/metrics"
	"github.com/trogdor/trogdor/pkg/registry"
	"github.com/trogdor/trogdor/pkg/topology"
)

var rootCmd = &cobra.Command{
	Use:   "trogdor-coordinator",
	Short: "Trogdor fault-injection coordinator",
	RunE:  runCoordinator,
}

func init() {
	rootCmd.Flags().String("config", "", "path to the trogdor config file (required)")
	rootCmd.Flags().String("name", "", "this node's name, as it appears in the config file (required)")
	rootCmd.Flags().Bool("foreground", false, "run in the foreground instead of daemonizing")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9091", "address to serve /metrics on")
	_ = rootCmd.MarkFlagRequired("config")
	_ = rootCmd.MarkFlagRequired("name")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCoordinator(cmd *cobra.Command, args []string) error {
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
	if node.CoordinatorPort == nil {
		err := fmt.Errorf("node %q has no trogdor_coordinator_port configured", nodeName)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return err
	}

	if !foreground {
		if err := daemon.Daemonize(); err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
	}

	fmt.Printf("Launching trogdor coordinator pid=%d name=%s\n", os.Getpid(), nodeName)

	logOut, err := log.OpenFile(fileCfg.Log.Path)
	if err != nil {
		return err
	}
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: logOut})
	defer log.Close()

	nodeLog := log.WithNodeName(nodeName)
	nodeLog.Info().Int("pid", os.Getpid()).Str("config", configPath).Int("nodes", len(topo.Names())).
		Msg("launching trogdor coordinator")

	stopSignals := log.StartSignalHandler()
	defer stopSignals()

	reg := registry.New(fileCfg.Modules)
	nodeClient := coordinator.NewHTTPNodeClient(nil)
	c := coordinator.New(clock.NewWall(), nodeLog, reg, topo, nodeClient)
	srv := coordinator.NewServer(c, fmt.Sprintf(":%d", *node.CoordinatorPort), nodeLog)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			nodeLog.Warn().Err(err).Msg("metrics server exited")
		}
	}()

	go func() {
		c.WaitForExit()
		_ = srv.Close()
	}()

	go c.Run()

	nodeLog.Info().Int("coordinator_port", *node.CoordinatorPort).Msg("coordinator HTTP surface listening")
	if err := srv.ListenAndServe(); err != nil {
		nodeLog.Warn().Err(err).Msg("coordinator HTTP server exited with error")
		return err
	}
	c.WaitForExit()
	return nil
}

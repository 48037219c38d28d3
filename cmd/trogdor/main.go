/*
trogdor is the CLI client (spec §4.9, §6): one blocking JSON/HTTP request
against an agent or coordinator's --agent host:port, chosen by exactly one
of --status / --faults / --add-fault / --shutdown. Grounded on the
teacher's cmd/warren/main.go flag style, using cobra's
MarkFlagsMutuallyExclusive/MarkFlagsOneRequired for the XOR groups spec §6
calls for. Cobra only rejects setting both flags of a timing pair; the
"exactly one of each pair" check and the --fault-name/--fault-spec
requirement for --add-fault are done by hand in doAddFault and
client.ParseAddFaultParams.
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/trogdor/trogdor/pkg/client"
	"github.com/trogdor/trogdor/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:   "trogdor",
	Short: "Trogdor fault-injection client",
	RunE:  runClient,
}

func init() {
	f := rootCmd.Flags()
	f.String("agent", "", "agent or coordinator host:port (required)")
	_ = rootCmd.MarkFlagRequired("agent")

	f.Bool("status", false, "GET /status")
	f.Bool("faults", false, "GET /faults")
	f.Bool("add-fault", false, "PUT /faults with a new fault")
	f.Bool("shutdown", false, "PUT /shutdown")
	rootCmd.MarkFlagsMutuallyExclusive("status", "faults", "add-fault", "shutdown")
	rootCmd.MarkFlagsOneRequired("status", "faults", "add-fault", "shutdown")

	f.String("fault-name", "", "fault name (required with --add-fault)")
	f.String("fault-spec", "", "fault-spec JSON, minus timing fields (required with --add-fault)")

	f.String("fault-start-time-ms", "", "absolute start_ms")
	f.String("fault-start-time-delta", "", "NhNmNs/bare-seconds duration from now")
	rootCmd.MarkFlagsMutuallyExclusive("fault-start-time-ms", "fault-start-time-delta")

	f.String("fault-end-time-ms", "", "absolute end_ms")
	f.String("fault-duration", "", "NhNmNs/bare-seconds duration")
	rootCmd.MarkFlagsMutuallyExclusive("fault-end-time-ms", "fault-duration")

	f.Bool("verbose", false, "trace outbound requests/responses to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	agentAddr, _ := f.GetString("agent")
	verbose, _ := f.GetBool("verbose")

	// --verbose restores ducktape client.py's trace-everything mode,
	// using the same leveled logger the daemons use rather than a
	// bespoke print statement (spec.md SUPPLEMENTED FEATURES).
	logger := zerolog.Nop()
	if verbose {
		log.Init(log.Config{Level: log.TraceLevel, JSONOutput: false, Output: os.Stderr})
		logger = log.Logger
	}

	c := client.New(agentAddr, logger)
	ctx := context.Background()

	switch {
	case flagTrue(f, "status"):
		return doStatus(ctx, c)
	case flagTrue(f, "faults"):
		return doFaults(ctx, c)
	case flagTrue(f, "add-fault"):
		return doAddFault(ctx, c, f)
	case flagTrue(f, "shutdown"):
		return doShutdown(ctx, c)
	}
	return nil
}

func flagTrue(f *pflag.FlagSet, name string) bool {
	v, _ := f.GetBool(name)
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func doStatus(ctx context.Context, c *client.Client) error {
	st, err := c.GetStatus(ctx)
	if err != nil {
		return err
	}
	return printJSON(st)
}

func doFaults(ctx context.Context, c *client.Client) error {
	faults, err := c.GetFaults(ctx)
	if err != nil {
		return err
	}
	return printJSON(faults)
}

func doShutdown(ctx context.Context, c *client.Client) error {
	if err := c.Shutdown(ctx); err != nil {
		return err
	}
	return printJSON(map[string]any{})
}

func doAddFault(ctx context.Context, c *client.Client, f *pflag.FlagSet) error {
	name, _ := f.GetString("fault-name")
	if name == "" {
		return fmt.Errorf("--fault-name is required with --add-fault")
	}
	faultSpec, _ := f.GetString("fault-spec")
	if faultSpec == "" {
		return fmt.Errorf("--fault-spec is required with --add-fault")
	}
	startMs, _ := f.GetString("fault-start-time-ms")
	startDelta, _ := f.GetString("fault-start-time-delta")
	endMs, _ := f.GetString("fault-end-time-ms")
	duration, _ := f.GetString("fault-duration")

	params, err := client.ParseAddFaultParams(name, faultSpec, startMs, startDelta, endMs, duration)
	if err != nil {
		return err
	}
	resolvedSpec, err := params.BuildFaultSpec(time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if err := c.AddFault(ctx, name, resolvedSpec); err != nil {
		return err
	}
	return printJSON(map[string]any{})
}

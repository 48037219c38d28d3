/*
Package log provides structured logging for Trogdor using zerolog.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})
	log.Info("agent starting")

	agentLog := log.WithNodeName("node0")
	agentLog.Warn().Str("fault_name", "f1").Msg("activate hook failed")

# Signal handling

StartSignalHandler installs the process-wide SIGINT/SIGTERM/SIGUSR1 intake
described in spec §4.2: the OS-level handler (Go's runtime, via
os/signal.Notify) only ever delivers a signal value onto a channel; all the
actual handling — logging, the goroutine stack dump, the exit — runs on an
ordinary goroutine, never inside async-signal-unsafe context.

# Integration

Used by the three binaries under cmd/ (both daemons and the trogdor
client). The packages under pkg/ do not import it; they take a
zerolog.Logger from their caller.
*/
package log

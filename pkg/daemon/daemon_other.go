//go:build !unix

package daemon

import "errors"

// Daemonize is unsupported outside Unix: it always returns an error, which
// the daemon binaries report and exit on, so they must be run with
// --foreground there.
func Daemonize() error {
	return errors.New("daemonize is only supported on unix platforms; use --foreground")
}

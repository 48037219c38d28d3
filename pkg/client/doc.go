// Package client is the blocking JSON/HTTP client both the `trogdor` CLI
// and tests use to drive an agent or coordinator. See client.go for the
// request methods, duration.go and hostport.go for the CLI's parsers, and
// request.go for --add-fault's flag resolution.
package client

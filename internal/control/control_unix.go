// control_unix.go implements the control endpoint transport for Unix-like
// systems using a unix domain socket inside the data directory.

//go:build !windows

package control

import (
	"net"
	"os"
)

// listen creates the unix socket, removing any stale socket file left behind
// by an unclean previous shutdown.
func listen(endpoint string) (net.Listener, error) {
	// A live daemon holds the PID lock, so a pre-existing socket here is
	// always stale.
	if _, err := os.Stat(endpoint); err == nil {
		os.Remove(endpoint)
	}
	return net.Listen("unix", endpoint)
}

// dial connects to the unix socket of a running daemon.
func dial(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}

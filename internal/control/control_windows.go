// control_windows.go implements the control endpoint transport for Windows
// using a named pipe via the go-winio library. The endpoint path from the
// data directory is ignored; a fixed pipe name scoped to the binary is used
// instead.

//go:build windows

package control

import (
	"net"

	"github.com/Microsoft/go-winio"

	"sessionlamp/internal/paths"
)

// pipeName is the named pipe the daemon listens on.
const pipeName = `\\.\pipe\` + paths.BinaryName

// listen creates the named pipe listener. Windows removes the pipe when the
// last handle closes, so no stale-endpoint cleanup is needed.
func listen(_ string) (net.Listener, error) {
	return winio.ListenPipe(pipeName, nil)
}

// dial connects to the named pipe of a running daemon.
func dial(_ string) (net.Conn, error) {
	return winio.DialPipe(pipeName, nil)
}

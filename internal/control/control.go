// Package control implements the local control endpoint: a line-oriented
// protocol over a unix socket (named pipe on Windows) that lets CLI
// invocations hide or unhide individual sessions in a running daemon.
//
// Protocol: one command per line, "hide <path>" or "unhide <path>", where
// <path> is the absolute source log path of the session. The server replies
// with a single line, "ok" or "err <reason>", and closes the connection.
package control

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

// Op is a control operation kind.
type Op string

const (
	OpHide   Op = "hide"
	OpUnhide Op = "unhide"
)

// Command is a parsed control request delivered to the daemon's event loop.
type Command struct {
	Op   Op
	Path string
}

// parseCommand parses one protocol line into a Command.
func parseCommand(line string) (Command, error) {
	op, path, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok || path == "" {
		return Command{}, fmt.Errorf("expected \"hide <path>\" or \"unhide <path>\"")
	}
	switch Op(op) {
	case OpHide, OpUnhide:
		return Command{Op: Op(op), Path: path}, nil
	default:
		return Command{}, fmt.Errorf("unknown operation %q", op)
	}
}

// ///////////////////////////////////////////////
// Server
// ///////////////////////////////////////////////

// Server accepts control connections and forwards parsed commands to the
// daemon over a channel. Commands are applied by the daemon's single event
// loop, never concurrently with a scan pass.
type Server struct {
	listener net.Listener
	commands chan Command
	done     chan struct{}
	once     sync.Once
}

// NewServer starts listening on the platform control endpoint and begins
// accepting connections.
func NewServer(endpoint string) (*Server, error) {
	ln, err := listen(endpoint)
	if err != nil {
		return nil, fmt.Errorf("listening on control endpoint: %w", err)
	}
	s := &Server{
		listener: ln,
		commands: make(chan Command, 8),
		done:     make(chan struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

// Commands returns the channel of parsed control commands.
func (s *Server) Commands() <-chan Command {
	return s.commands
}

// Close stops the server and releases the endpoint. Safe to call multiple
// times.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.done)
		s.listener.Close()
	})
}

// acceptLoop accepts connections until the server is closed.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			slog.Debug("control accept error", "error", err)
			continue
		}
		go s.handle(conn)
	}
}

// handle reads one command from the connection, forwards it, and replies.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintf(conn, "err reading command: %v\n", err)
		return
	}

	cmd, err := parseCommand(line)
	if err != nil {
		fmt.Fprintf(conn, "err %v\n", err)
		return
	}

	select {
	case s.commands <- cmd:
		fmt.Fprintln(conn, "ok")
	case <-s.done:
		fmt.Fprintln(conn, "err daemon shutting down")
	case <-time.After(3 * time.Second):
		fmt.Fprintln(conn, "err daemon busy")
	}
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Send connects to a running daemon's control endpoint, issues one command,
// and returns an error unless the daemon replied "ok".
func Send(endpoint string, op Op, path string) error {
	conn, err := dial(endpoint)
	if err != nil {
		return fmt.Errorf("connecting to control endpoint (is the daemon running?): %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := fmt.Fprintf(conn, "%s %s\n", op, path); err != nil {
		return fmt.Errorf("sending command: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return fmt.Errorf("reading reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply != "ok" {
		return fmt.Errorf("daemon replied: %s", reply)
	}
	return nil
}

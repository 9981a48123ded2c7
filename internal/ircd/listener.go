package ircd

import (
	"log"
	"net"

	"github.com/pkg/errors"
)

// Listener accepts TCP connections and hands each off to the server as
// a newly constructed Connection.
type Listener struct {
	Server   *Server
	listener net.Listener
}

// Listen opens a TCP listener bound to addr (host:port) for srv.
func Listen(srv *Server, addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listening")
	}
	return &Listener{Server: srv, listener: ln}, nil
}

// Close stops accepting new connections. It does not touch existing
// ones; call Server.BeginShutdown for that.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Addr returns the bound local address, useful for tests that listen on
// ":0" and need the assigned port.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts connections until Close is called, spawning a
// read/write goroutine pair for each one it accepts. It blocks the
// calling goroutine, so callers typically run it in its own goroutine.
func (l *Listener) Serve() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.Server.isShuttingDown() {
				return
			}
			log.Printf("accept error: %s", err)
			return
		}

		l.handleAccept(conn)
	}
}

func (l *Listener) handleAccept(raw net.Conn) {
	srv := l.Server

	if srv.Config.MaxUsers > 0 && srv.Users.Count() >= srv.Config.MaxUsers {
		// At capacity: close immediately, no reply.
		_ = raw.Close()
		return
	}

	// Hostname resolution can block on DNS; do it off the accept loop so
	// one slow lookup can't stall every other pending connection.
	go srv.setupConnection(raw)
}

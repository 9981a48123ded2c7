package ircd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Clock abstracts wall-clock time and timer scheduling so ping/keepalive
// logic can be driven from tests. realClock is the only production
// implementation.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) *time.Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *time.Timer {
	return time.AfterFunc(d, f)
}

// HostnameResolver turns a new connection's remote address into its
// displayed host, with a fallback to the literal IP on failure or
// timeout.
type HostnameResolver interface {
	Resolve(ip net.IP) string
}

// noopResolver always falls back to the literal IP. It is the default
// used when a server is constructed without an explicit resolver (and
// is what tests use to avoid real DNS traffic).
type noopResolver struct{}

func (noopResolver) Resolve(ip net.IP) string {
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}

// lookupResolver performs a real reverse lookup with a bounded timeout,
// falling back to the IP literal on any error.
type lookupResolver struct {
	Timeout time.Duration
}

func (r lookupResolver) Resolve(ip net.IP) string {
	if ip == nil {
		return "unknown"
	}

	resultChan := make(chan string, 1)
	go func() {
		names, err := net.LookupAddr(ip.String())
		if err != nil || len(names) == 0 {
			resultChan <- ip.String()
			return
		}
		resultChan <- names[0]
	}()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	select {
	case name := <-resultChan:
		return name
	case <-time.After(timeout):
		return ip.String()
	}
}

// PingTokenSource produces the opaque tokens sent as a PING parameter
// and checked against the client's PONG reply. realPingTokens, the
// default, draws from crypto/rand.
type PingTokenSource interface {
	Next() string
}

type realPingTokens struct{}

func (realPingTokens) Next() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}

// ShutdownHook is notified when the server begins shutting down, giving
// callers (tests, a supervising process) a chance to react without
// polling.
type ShutdownHook interface {
	ServerShuttingDown()
}

type noopShutdownHook struct{}

func (noopShutdownHook) ServerShuttingDown() {}

// Server owns the two directories, configuration, and every injected
// collaborator; it is the root of the object graph a listener or test
// harness constructs.
type Server struct {
	Config Config

	Users    *UserDirectory
	Channels *ChannelDirectory

	Clock      Clock
	Resolver   HostnameResolver
	PingTokens PingTokenSource
	Shutdown   ShutdownHook

	wg sync.WaitGroup

	nextID uint64

	shuttingDown int32
}

// NewServer builds a Server ready to accept connections once started
// via Listener.Serve. Clock/Resolver/PingTokens/Shutdown start at their
// defaults and may be overridden by callers after construction.
func NewServer(cfg Config) *Server {
	return &Server{
		Config:     cfg,
		Users:      newUserDirectory(cfg.MaxUsers),
		Channels:   newChannelDirectory(cfg.MaxChannels),
		Clock:      realClock{},
		Resolver:   noopResolver{},
		PingTokens: realPingTokens{},
		Shutdown:   noopShutdownHook{},
	}
}

func (s *Server) isShuttingDown() bool {
	return atomic.LoadInt32(&s.shuttingDown) != 0
}

// BeginShutdown begins a graceful server shutdown: the shutdown hook is
// told first (cmd/skyircd uses it to stop the accept loop), then every
// live connection is told goodbye and disconnected.
func (s *Server) BeginShutdown(message string) {
	atomic.StoreInt32(&s.shuttingDown, 1)
	s.Shutdown.ServerShuttingDown()

	s.Users.BroadcastToAll(command(s.Config.ServerName, "NOTICE", "*", message))

	var toClose []*Connection
	s.Users.ForEach(func(c *Connection) {
		toClose = append(toClose, c)
	})
	for _, c := range toClose {
		c.triggerClose(message)
	}
}

// Wait blocks until every connection's read/write goroutines have
// exited, used by cmd/skyircd for a clean process exit.
func (s *Server) Wait() {
	s.wg.Wait()
}

// newConnectionID hands out a process-unique connection identifier,
// used only for logging/debugging (never sent on the wire).
func (s *Server) newConnectionID() uint64 {
	return atomic.AddUint64(&s.nextID, 1)
}

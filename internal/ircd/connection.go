package ircd

import (
	"fmt"
	"net"
	"sync"
	"time"

	ircwire "github.com/horgh/irc"
)

// regState tracks a Connection's place in the registration state
// machine: waitForPass -> waitForUser -> readyForMsg. PASS is only
// demanded on a password-protected server, so a connection elsewhere
// starts directly in waitForUser.
type regState int

const (
	waitForPass regState = iota
	waitForUser
	readyForMsg
)

// Connection is one client's full session: socket I/O, registration
// progress, and every piece of mutable per-user state a command
// handler might touch. Fields reached only through stateMu are safe to
// read/write from any goroutine provided the mutex is held; fields set
// once at construction (id, conn, server, writeChan) need no lock.
//
// Lock ordering: whenever a handler must hold both a directory lock and
// a Connection's stateMu, it takes the directory lock first. This
// matches the ordering UserDirectory and ChannelDirectory already
// assume and avoids a deadlock between a connection quitting (directory
// then connection) and a directory broadcast (directory then
// connection).
type Connection struct {
	id       uint64
	conn     netConn
	server   *Server
	hostname string

	writeChan chan ircwire.Message
	doneChan  chan struct{}
	closeOnce sync.Once

	connectedAt time.Time

	stateMu sync.Mutex

	state regState

	gotNick bool
	gotUser bool

	nick      string
	nickCanon string
	username  string
	realName  string

	invisible       bool
	ircOp           bool
	receivesWallops bool
	receivesNotices bool
	away            bool
	awayMessage     string

	// channels is the set of canonical channel names this connection
	// currently belongs to, kept in sync with each Channel.Members entry
	// so QUIT/disconnect can clean up without scanning every channel.
	channels map[string]struct{}

	closed            bool
	sendQueueExceeded bool

	pingToken    string
	awaitingPong bool
	lastActivity time.Time

	cyclePing *time.Timer
	deadPing  *time.Timer
}

func newConnection(id uint64, nc netConn, srv *Server) *Connection {
	state := waitForUser
	if srv.Config.PasswordProtected {
		state = waitForPass
	}

	placeholder := fmt.Sprintf("Anon_%x", id)

	return &Connection{
		id:              id,
		conn:            nc,
		server:          srv,
		hostname:        nc.IP().String(),
		writeChan:       make(chan ircwire.Message, 2048),
		doneChan:        make(chan struct{}),
		connectedAt:     srv.Clock.Now(),
		state:           state,
		nick:            placeholder,
		nickCanon:       canonicalizeNick(placeholder),
		channels:        map[string]struct{}{},
		invisible:       srv.Config.DefaultInvisible,
		ircOp:           srv.Config.DefaultIsIRCOp,
		receivesWallops: srv.Config.DefaultReceivesWallops,
		receivesNotices: srv.Config.DefaultReceivesNotices,
		away:            srv.Config.DefaultAway,
		lastActivity:    srv.Clock.Now(),
	}
}

func (c *Connection) String() string {
	nick := c.Nick()
	if nick == "" {
		nick = "*"
	}
	return nick + " " + c.conn.RemoteAddr().String()
}

// Nick returns the connection's current display nickname, or its
// Anon_<hex> placeholder before one is chosen.
func (c *Connection) Nick() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.nick
}

// NickCanon returns the connection's canonical (case-folded) nickname.
func (c *Connection) NickCanon() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.nickCanon
}

// IsRegistered reports whether the connection has completed NICK+USER
// registration.
func (c *Connection) IsRegistered() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state == readyForMsg
}

// Prefix builds this connection's "nick!user@host" message origin.
func (c *Connection) Prefix() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return userPrefix(c.nick, c.username, c.hostname)
}

// IsInvisible, IsIRCOp, IsAway, and ReceivesWallops/Notices report the
// user-mode flags. There is no MODE command, so these are only ever set
// from config defaults, OPER, or AWAY.
func (c *Connection) IsInvisible() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.invisible
}

func (c *Connection) IsIRCOp() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.ircOp
}

func (c *Connection) IsAway() (bool, string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.away, c.awayMessage
}

func (c *Connection) ReceivesWallops() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.receivesWallops
}

func (c *Connection) ReceivesNotices() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.receivesNotices
}

func (c *Connection) setAway(away bool, msg string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.away = away
	c.awayMessage = msg
}

func (c *Connection) setOper() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.ircOp = true
}

// JoinedChannels returns a snapshot of canonical channel names this
// connection currently belongs to.
func (c *Connection) JoinedChannels() []string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

func (c *Connection) ChannelCount() int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return len(c.channels)
}

func (c *Connection) addChannel(nameCanon string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.channels[nameCanon] = struct{}{}
}

func (c *Connection) removeChannel(nameCanon string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	delete(c.channels, nameCanon)
}

// send queues m for delivery without blocking. If the connection's
// outbound buffer is already full, it is flagged rather than grown: a
// single slow or dead peer must never stall the goroutine delivering
// to everyone else.
func (c *Connection) send(m ircwire.Message) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.closed || c.sendQueueExceeded {
		return
	}

	// Enqueue while still holding stateMu: triggerClose sets closed under
	// the same mutex before closing writeChan, so no send can race the
	// close.
	select {
	case c.writeChan <- m:
	default:
		c.sendQueueExceeded = true
	}
}

// sendNumeric queues a numeric reply addressed to this connection's
// nickname, or to "*" until registration completes.
func (c *Connection) sendNumeric(code string, params ...string) {
	c.send(numeric(c.server.Config.ServerName, c.displayOrStar(), code, params...))
}

// displayOrStar returns the nickname to use as a numeric reply's
// target: "*" until registration completes (the RFC convention, and
// what lets a client tell its placeholder apart from a chosen nick
// that simply hasn't been confirmed yet), the real nick after.
func (c *Connection) displayOrStar() string {
	if !c.IsRegistered() {
		return "*"
	}
	return c.Nick()
}

// readLoop owns the socket's read side for the lifetime of the
// connection: parse a line, hand the message to the server's
// dispatcher, repeat until a read fails or the connection is closed.
// Over-length and unparsable lines are skipped without dropping the
// peer.
func (c *Connection) readLoop() {
	defer c.server.wg.Done()
	defer c.triggerClose("Connection reset by peer")

	for {
		select {
		case <-c.doneChan:
			return
		default:
		}

		line, err := c.conn.readLine()
		if err == errLineTooLong {
			continue
		}
		if err != nil {
			return
		}

		c.noteActivity()

		msg, err := ircwire.ParseMessage(line)
		if err != nil {
			continue
		}

		c.server.dispatch(c, msg)
	}
}

// writeLoop owns the socket's write side: drain the write channel,
// encode, and write, closing the socket once the channel is closed or
// a write fails.
func (c *Connection) writeLoop() {
	defer c.server.wg.Done()

	for {
		select {
		case m, ok := <-c.writeChan:
			if !ok {
				_ = c.conn.Close()
				return
			}
			if err := c.conn.writeMessage(m); err != nil {
				_ = c.conn.Close()
				c.triggerClose("Write error")
				return
			}
		case <-c.doneChan:
			_ = c.conn.Close()
			return
		}
	}
}

func (c *Connection) noteActivity() {
	c.stateMu.Lock()
	c.lastActivity = c.server.Clock.Now()
	c.stateMu.Unlock()
}

// triggerClose begins the graceful-disconnect sequence: stop the ping
// timers, tell other channel members, remove the connection from its
// channels and the user directory, and finally close the write channel.
// doneChan is closed first, so writeLoop closes the socket and exits
// without flushing whatever is still queued.
func (c *Connection) triggerClose(reason string) {
	c.closeOnce.Do(func() {
		close(c.doneChan)

		c.stateMu.Lock()
		if c.cyclePing != nil {
			c.cyclePing.Stop()
		}
		if c.deadPing != nil {
			c.deadPing.Stop()
		}
		c.stateMu.Unlock()

		c.server.handleDisconnect(c, reason)

		c.stateMu.Lock()
		c.closed = true
		c.stateMu.Unlock()
		close(c.writeChan)
	})
}

// startPingTimers arms the keepalive cycle: cyclePing fires
// PingRefreshDelay later to probe a possibly-idle peer, and the PING it
// sends arms deadPing, which fires PingTimeoutDelay after that to drop
// a peer that never answered.
func (c *Connection) startPingTimers() {
	timer := c.server.Clock.AfterFunc(c.server.Config.PingRefreshDelay, c.onCyclePing)
	c.stateMu.Lock()
	c.cyclePing = timer
	c.stateMu.Unlock()
}

func (c *Connection) onCyclePing() {
	select {
	case <-c.doneChan:
		return
	default:
	}

	c.stateMu.Lock()
	c.pingToken = "ping_" + c.server.PingTokens.Next()
	c.awaitingPong = true
	token := c.pingToken
	c.stateMu.Unlock()

	c.send(command(c.server.Config.ServerName, "PING", token))

	timer := c.server.Clock.AfterFunc(c.server.Config.PingTimeoutDelay, c.onDeadPing)
	c.stateMu.Lock()
	c.deadPing = timer
	c.stateMu.Unlock()
}

func (c *Connection) onDeadPing() {
	select {
	case <-c.doneChan:
		return
	default:
	}

	c.stateMu.Lock()
	stillWaiting := c.awaitingPong
	c.stateMu.Unlock()

	// A matching PONG already stopped this timer and restarted the cycle;
	// if we still fired anyway we lost that race and must not close a
	// connection that did answer.
	if !stillWaiting {
		return
	}

	c.triggerClose("Ping timeout")
}

// handlePong verifies an inbound PONG's token against the outstanding
// challenge and, if it matches, cancels the pending deadline and
// restarts the cycle timer. A PONG carrying any other token changes
// nothing.
func (c *Connection) handlePong(token string) {
	c.stateMu.Lock()
	matches := c.awaitingPong && token == c.pingToken
	if matches {
		c.awaitingPong = false
	}
	dead := c.deadPing
	c.stateMu.Unlock()

	if !matches {
		return
	}

	if dead != nil {
		dead.Stop()
	}
	c.startPingTimers()
}

// remoteIP reports the peer's IP address, falling back to an empty
// value if it could not be parsed (loopback unit tests with a net.Pipe
// connection, for instance).
func (c *Connection) remoteIP() net.IP {
	return c.conn.IP()
}

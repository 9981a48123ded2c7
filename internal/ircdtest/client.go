// Package ircdtest provides a small test-only IRC client for driving a
// live listener: dial, read/write IRC messages, answer PING
// automatically, and collect what was received.
package ircdtest

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/horgh/irc"
)

// Client is a minimal scripted IRC client for driving a live skyircd
// listener in tests.
type Client struct {
	conn net.Conn
	rw   *bufio.ReadWriter

	mu       sync.Mutex
	received []irc.Message
}

// Dial connects to addr and returns an unregistered Client.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %s", addr, err)
	}
	return &Client{
		conn: conn,
		rw:   bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
	}, nil
}

// Register sends NICK and USER, the minimum handshake that completes
// registration on an unprotected server.
func (c *Client) Register(nick string) error {
	if err := c.Send(irc.Message{Command: "NICK", Params: []string{nick}}); err != nil {
		return err
	}
	return c.Send(irc.Message{
		Command: "USER",
		Params:  []string{nick, "0", "*", nick + " real name"},
	})
}

// Send encodes and writes one message.
func (c *Client) Send(m irc.Message) error {
	buf, err := m.Encode()
	if err != nil && err != irc.ErrTruncated {
		return fmt.Errorf("encoding %+v: %s", m, err)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	if _, err := c.rw.WriteString(buf); err != nil {
		return err
	}
	return c.rw.Flush()
}

// SendLine writes a raw (CRLF-terminated) protocol line, used by tests
// that need to exercise malformed or edge-case framing the Message
// type can't represent.
func (c *Client) SendLine(line string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	if _, err := c.rw.WriteString(line); err != nil {
		return err
	}
	return c.rw.Flush()
}

// Next reads the next message from the server, answering PING
// automatically and skipping over it rather than returning it to the
// caller.
func (c *Client) Next(timeout time.Duration) (irc.Message, error) {
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return irc.Message{}, err
		}
		line, err := c.rw.ReadString('\n')
		if err != nil {
			return irc.Message{}, err
		}
		m, err := irc.ParseMessage(line)
		if err != nil && err != irc.ErrTruncated {
			return irc.Message{}, fmt.Errorf("parsing %q: %s", line, err)
		}

		c.mu.Lock()
		c.received = append(c.received, m)
		c.mu.Unlock()

		if m.Command == "PING" {
			if err := c.Send(irc.Message{Command: "PONG", Params: m.Params}); err != nil {
				return irc.Message{}, err
			}
			continue
		}
		return m, nil
	}
}

// NextMatching reads messages until one with the given command arrives
// or timeout elapses, discarding everything in between (most
// scenarios only care about one reply among several, e.g. skipping the
// AUTH notices before the welcome sequence).
func (c *Client) NextMatching(command string, timeout time.Duration) (irc.Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return irc.Message{}, fmt.Errorf("timed out waiting for %s", command)
		}
		m, err := c.Next(remaining)
		if err != nil {
			return irc.Message{}, err
		}
		if m.Command == command {
			return m, nil
		}
	}
}

// Drain reads and discards messages until timeout elapses without one
// arriving, used to confirm a scenario produced no reply.
func (c *Client) Drain(timeout time.Duration) {
	for {
		if _, err := c.Next(timeout); err != nil {
			return
		}
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

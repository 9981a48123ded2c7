package ircd

import (
	"bufio"
	"net"
	"time"

	"github.com/pkg/errors"

	ircwire "github.com/horgh/irc"
)

// netConn wraps a net.Conn with a buffered reader/writer and an idle
// deadline. It is the only part of the package that touches a raw
// socket: it hands raw protocol lines up for parsing and encodes
// outbound ircwire.Message values.
type netConn struct {
	conn   net.Conn
	rw     *bufio.ReadWriter
	ioWait time.Duration
	peerIP net.IP
}

func newNetConn(conn net.Conn, ioWait time.Duration) netConn {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	var ip net.IP
	if err == nil {
		ip = net.ParseIP(host)
	}
	return netConn{
		conn:   conn,
		rw:     bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
		ioWait: ioWait,
		peerIP: ip,
	}
}

func (c netConn) Close() error {
	return c.conn.Close()
}

func (c netConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c netConn) IP() net.IP {
	return c.peerIP
}

// readLine reads one CRLF (or bare LF) terminated protocol line,
// enforcing an idle deadline so a silent peer eventually gives up its
// goroutine. ioWait is sized by the caller to twice
// PingRefreshDelay+PingTimeoutDelay so the socket never times out a
// connection before the application-level ping/pong timers have had
// their full chance to.
func (c netConn) readLine() (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.ioWait)); err != nil {
		return "", errors.Wrap(err, "setting read deadline")
	}

	line, err := c.rw.ReadString('\n')
	if err != nil {
		return "", err
	}

	if len(line) > ircwire.MaxLineLength {
		return "", errLineTooLong
	}

	return line, nil
}

// errLineTooLong marks an over-length protocol line. The read loop
// drops the line and keeps the connection, per RFC 1459's 512-byte
// limit.
var errLineTooLong = errors.New("line exceeds maximum protocol length")

// writeMessage encodes and writes a single message, flushing
// immediately. A message the encoder had to truncate is still written
// in its truncated form; other encode failures and short writes are
// returned as errors.
func (c netConn) writeMessage(m ircwire.Message) error {
	buf, err := m.Encode()
	if err != nil && errors.Cause(err) != ircwire.ErrTruncated {
		return errors.Wrap(err, "encoding message")
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.ioWait)); err != nil {
		return errors.Wrap(err, "setting write deadline")
	}

	n, err := c.rw.WriteString(buf)
	if err != nil {
		return errors.Wrap(err, "writing message")
	}
	if n != len(buf) {
		return errors.New("short write")
	}

	return c.rw.Flush()
}

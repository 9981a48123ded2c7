package ircd

import (
	"sync"

	ircwire "github.com/horgh/irc"
)

// UserDirectory is the server-wide nickname -> *Connection map. A
// single RWMutex guards the map; each Connection's own mutable fields
// are guarded separately by its stateMu (see connection.go). Lock
// ordering throughout the package is always directory-then-connection,
// never the reverse, to keep this deadlock-free.
type UserDirectory struct {
	mu      sync.RWMutex
	byNick  map[string]*Connection
	maxSize int
}

func newUserDirectory(maxSize int) *UserDirectory {
	return &UserDirectory{
		byNick:  map[string]*Connection{},
		maxSize: maxSize,
	}
}

// Reserve registers nickCanon for conn if it is both free and the
// directory has room, returning errNicknameInUseErr or ErrUserCapReached
// otherwise. Used for both initial registration and nick changes.
func (d *UserDirectory) Reserve(nickCanon string, conn *Connection) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byNick[nickCanon]; exists {
		return errNicknameInUseErr
	}
	if d.maxSize > 0 && len(d.byNick) >= d.maxSize {
		return ErrUserCapReached
	}

	d.byNick[nickCanon] = conn
	return nil
}

// Rename atomically moves a registration from oldCanon to newCanon,
// used by NICK after registration. It fails with errNicknameInUseErr if
// newCanon is already taken by someone else.
func (d *UserDirectory) Rename(oldCanon, newCanon string, conn *Connection) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, exists := d.byNick[newCanon]; exists && existing != conn {
		return errNicknameInUseErr
	}

	delete(d.byNick, oldCanon)
	d.byNick[newCanon] = conn
	return nil
}

// Remove deletes nickCanon's registration, if it still points at conn.
// The conn check guards against removing a newer registration that
// replaced conn's placeholder nick during the registration race.
func (d *UserDirectory) Remove(nickCanon string, conn *Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.byNick[nickCanon]; ok && existing == conn {
		delete(d.byNick, nickCanon)
	}
}

// Lookup returns the Connection registered under nickCanon.
func (d *UserDirectory) Lookup(nickCanon string) (*Connection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	conn, ok := d.byNick[nickCanon]
	return conn, ok
}

// Count returns the number of registered users.
func (d *UserDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byNick)
}

// CountMatching returns the number of registered users for which pred
// returns true, used to compute LUSERS' invisible/ircop totals
// without copying the whole directory out.
func (d *UserDirectory) CountMatching(pred func(c *Connection) bool) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, conn := range d.byNick {
		if pred(conn) {
			n++
		}
	}
	return n
}

// ForEach calls fn for every registered connection, holding the read
// lock for the duration. fn must not call back into the directory.
func (d *UserDirectory) ForEach(fn func(c *Connection)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, conn := range d.byNick {
		fn(conn)
	}
}

// snapshot copies out every registered connection matching pred so
// broadcasts deliver without holding the directory lock.
func (d *UserDirectory) snapshot(pred func(c *Connection) bool) []*Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Connection, 0, len(d.byNick))
	for _, conn := range d.byNick {
		if pred(conn) {
			out = append(out, conn)
		}
	}
	return out
}

// BroadcastToAll delivers m to every registered connection that has
// opted into server notices. Connections still in a pre-registration
// state are never in the directory, so they never receive broadcasts.
func (d *UserDirectory) BroadcastToAll(m ircwire.Message) {
	for _, conn := range d.snapshot(func(c *Connection) bool {
		return c.IsRegistered() && c.ReceivesNotices()
	}) {
		conn.send(m)
	}
}

// BroadcastToIRCOps delivers m to every registered IRC operator whose
// wallops flag is set.
func (d *UserDirectory) BroadcastToIRCOps(m ircwire.Message) {
	for _, conn := range d.snapshot(func(c *Connection) bool {
		return c.IsRegistered() && c.IsIRCOp() && c.ReceivesWallops()
	}) {
		conn.send(m)
	}
}

package ircd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserDirectoryReserveAndLookup(t *testing.T) {
	dir := newUserDirectory(0)
	conn := &Connection{}

	require.NoError(t, dir.Reserve("alice", conn))

	got, ok := dir.Lookup("alice")
	require.True(t, ok)
	require.Same(t, conn, got)

	other := &Connection{}
	err := dir.Reserve("alice", other)
	require.Error(t, err, "reserving a taken nickname should fail")
}

func TestUserDirectoryCapacity(t *testing.T) {
	dir := newUserDirectory(1)

	require.NoError(t, dir.Reserve("alice", &Connection{}))

	err := dir.Reserve("bob", &Connection{})
	require.ErrorIs(t, err, ErrUserCapReached)
}

func TestUserDirectoryRename(t *testing.T) {
	dir := newUserDirectory(0)
	conn := &Connection{}
	require.NoError(t, dir.Reserve("alice", conn))

	require.NoError(t, dir.Rename("alice", "alice2", conn))

	_, ok := dir.Lookup("alice")
	require.False(t, ok, "old nickname should no longer resolve")

	got, ok := dir.Lookup("alice2")
	require.True(t, ok)
	require.Same(t, conn, got)
}

func TestUserDirectoryRenameRejectsCollision(t *testing.T) {
	dir := newUserDirectory(0)
	alice := &Connection{}
	bob := &Connection{}
	require.NoError(t, dir.Reserve("alice", alice))
	require.NoError(t, dir.Reserve("bob", bob))

	err := dir.Rename("alice", "bob", alice)
	require.Error(t, err, "renaming onto another user's nickname should fail")
}

// TestUserDirectoryRemoveGuardsAgainstStaleConn verifies that Remove
// only deletes an entry if it still points at the caller's connection,
// protecting against removing a newer registration that replaced a
// placeholder nickname during a registration race.
func TestUserDirectoryRemoveGuardsAgainstStaleConn(t *testing.T) {
	dir := newUserDirectory(0)
	first := &Connection{}
	require.NoError(t, dir.Reserve("alice", first))

	dir.Remove("alice", &Connection{})
	_, ok := dir.Lookup("alice")
	require.True(t, ok, "Remove with a mismatched connection must not remove the entry")

	dir.Remove("alice", first)
	_, ok = dir.Lookup("alice")
	require.False(t, ok)
}

func TestUserDirectoryCountMatching(t *testing.T) {
	dir := newUserDirectory(0)
	require.NoError(t, dir.Reserve("alice", &Connection{ircOp: true}))
	require.NoError(t, dir.Reserve("bob", &Connection{}))

	n := dir.CountMatching(func(c *Connection) bool { return c.ircOp })
	require.Equal(t, 1, n)
	require.Equal(t, 2, dir.Count())
}

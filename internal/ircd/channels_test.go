package ircd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelDirectoryGetOrCreate(t *testing.T) {
	dir := newChannelDirectory(0)
	cfg := DefaultConfig("irc.local")

	ch, created, err := dir.GetOrCreate("#room", "#room", cfg)
	require.NoError(t, err)
	require.True(t, created, "first GetOrCreate should create the channel")
	require.Equal(t, "#room", ch.Name)

	again, created, err := dir.GetOrCreate("#room", "#room", cfg)
	require.NoError(t, err)
	require.False(t, created, "second GetOrCreate should return the existing channel")
	require.Same(t, ch, again)
}

func TestChannelDirectoryCapacity(t *testing.T) {
	dir := newChannelDirectory(1)
	cfg := DefaultConfig("irc.local")

	_, _, err := dir.GetOrCreate("#a", "#a", cfg)
	require.NoError(t, err)

	_, _, err = dir.GetOrCreate("#b", "#b", cfg)
	require.ErrorIs(t, err, ErrChannelCapReached)
}

// TestChannelDirectoryRemoveIfEmpty verifies that a channel with no
// members left does not stay in the directory.
func TestChannelDirectoryRemoveIfEmpty(t *testing.T) {
	dir := newChannelDirectory(0)
	cfg := DefaultConfig("irc.local")

	_, _, err := dir.GetOrCreate("#room", "#room", cfg)
	require.NoError(t, err)

	dir.WithChannel("#room", func(ch *Channel, ok bool) {
		require.True(t, ok)
		ch.Members["alice"] = &member{isOp: true, canSpeak: true}
	})

	dir.RemoveIfEmpty("#room")
	_, ok := dir.Lookup("#room")
	require.True(t, ok, "channel with a member should survive RemoveIfEmpty")

	dir.WithChannel("#room", func(ch *Channel, ok bool) {
		require.True(t, ok)
		delete(ch.Members, "alice")
	})

	dir.RemoveIfEmpty("#room")
	_, ok = dir.Lookup("#room")
	require.False(t, ok, "empty channel should be removed")
}

func TestChannelModerationDefaultsFromConfig(t *testing.T) {
	cfg := DefaultConfig("irc.local")
	cfg.DefaultChanModerated = true
	cfg.DefaultChanInviteOnly = true
	cfg.UsersLimitPerChannel = 5

	ch := newChannel("#room", cfg)
	require.True(t, ch.Moderated)
	require.True(t, ch.InviteOnly)
	require.False(t, ch.Secret)
	require.Equal(t, 5, ch.UserLimit)
}

func TestChannelNamesListMarksOps(t *testing.T) {
	ch := newChannel("#room", DefaultConfig("irc.local"))
	ch.Members["alice"] = &member{isOp: true}
	ch.Members["bob"] = &member{isOp: false}

	names := ch.namesList(map[string]string{"alice": "Alice", "bob": "Bob"})
	require.Contains(t, names, "@Alice")
	require.Contains(t, names, "Bob")
	require.NotContains(t, names, "@Bob")
}

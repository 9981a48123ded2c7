package ircdtest

import (
	"testing"
	"time"

	"github.com/horgh/irc"
	"github.com/stretchr/testify/require"

	"github.com/skywodd/skyircd/internal/ircd"
)

const timeout = 2 * time.Second

func startServer(t *testing.T, cfg ircd.Config) (*ircd.Server, *ircd.Listener) {
	t.Helper()

	srv := ircd.NewServer(cfg)
	ln, err := ircd.Listen(srv, "127.0.0.1:0")
	require.NoError(t, err, "starting listener")

	go ln.Serve()
	t.Cleanup(func() { _ = ln.Close() })

	return srv, ln
}

// TestUnprotectedRegistration exercises an unprotected server's welcome
// sequence after NICK+USER.
func TestUnprotectedRegistration(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	_, ln := startServer(t, cfg)

	c, err := Dial(ln.Addr().String())
	require.NoError(t, err, "dial")
	defer c.Close()

	require.NoError(t, c.Register("alice"), "register")

	welcome, err := c.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err, "waiting for welcome")
	require.Equal(t, "irc.local", welcome.Prefix)
	require.Equal(t, "alice", welcome.Params[0])
	require.Contains(t, welcome.Params[1], "alice!~alice@")

	yourHost, err := c.NextMatching("002", timeout)
	require.NoError(t, err)
	require.Contains(t, yourHost.Params[1], "irc.local")
}

// TestJoinAndSpeak exercises a channel join and a PRIVMSG broadcast to
// a second member.
func TestJoinAndSpeak(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	_, ln := startServer(t, cfg)

	alice, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer alice.Close()
	require.NoError(t, alice.Register("alice"))
	_, err = alice.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)

	require.NoError(t, alice.Send(irc.Message{Command: "JOIN", Params: []string{"#room"}}))

	joinEcho, err := alice.NextMatching("JOIN", timeout)
	require.NoError(t, err)
	require.Equal(t, "#room", joinEcho.Params[0])

	_, err = alice.NextMatching("331", timeout) // RPL_NOTOPIC
	require.NoError(t, err)
	_, err = alice.NextMatching("366", timeout) // RPL_ENDOFNAMES
	require.NoError(t, err)

	bob, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer bob.Close()
	require.NoError(t, bob.Register("bob"))
	_, err = bob.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, bob.Send(irc.Message{Command: "JOIN", Params: []string{"#room"}}))
	_, err = bob.NextMatching("366", timeout)
	require.NoError(t, err)

	// alice sees bob's JOIN broadcast.
	bobJoin, err := alice.NextMatching("JOIN", timeout)
	require.NoError(t, err)
	require.Equal(t, "bob", bobJoin.SourceNick())

	require.NoError(t, alice.Send(irc.Message{
		Command: "PRIVMSG",
		Params:  []string{"#room", "hello"},
	}))

	msg, err := bob.NextMatching("PRIVMSG", timeout)
	require.NoError(t, err)
	require.Equal(t, "alice", msg.SourceNick())
	require.Equal(t, []string{"#room", "hello"}, msg.Params)
}

// TestModeratedChannelBlocksSpeech verifies that a non-speaking member
// of a moderated channel is rejected.
func TestModeratedChannelBlocksSpeech(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	cfg.DefaultChanModerated = true
	_, ln := startServer(t, cfg)

	alice, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer alice.Close()
	require.NoError(t, alice.Register("alice"))
	_, err = alice.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, alice.Send(irc.Message{Command: "JOIN", Params: []string{"#room"}}))
	_, err = alice.NextMatching("366", timeout)
	require.NoError(t, err)

	bob, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer bob.Close()
	require.NoError(t, bob.Register("bob"))
	_, err = bob.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, bob.Send(irc.Message{Command: "JOIN", Params: []string{"#room"}}))
	_, err = bob.NextMatching("366", timeout)
	require.NoError(t, err)
	_, err = alice.NextMatching("JOIN", timeout) // bob's join echo
	require.NoError(t, err)

	require.NoError(t, bob.Send(irc.Message{
		Command: "PRIVMSG",
		Params:  []string{"#room", "can I talk?"},
	}))

	reply, err := bob.NextMatching("404", timeout)
	require.NoError(t, err)
	require.Equal(t, "#room", reply.Params[1])
}

// TestBadChannelKey exercises joining a keyed channel with the wrong
// key. The key itself is set directly through the server's channel
// directory since there is no MODE command to set one from the wire.
func TestBadChannelKey(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	srv, ln := startServer(t, cfg)

	owner, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer owner.Close()
	require.NoError(t, owner.Register("owner"))
	_, err = owner.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)

	require.NoError(t, owner.Send(irc.Message{Command: "JOIN", Params: []string{"#vip"}}))
	_, err = owner.NextMatching("366", timeout)
	require.NoError(t, err)

	srv.Channels.WithChannel("#vip", func(ch *ircd.Channel, ok bool) {
		require.True(t, ok, "#vip should exist after owner's join")
		ch.Key = "secret"
	})

	second, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Register("second"))
	_, err = second.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)

	require.NoError(t, second.Send(irc.Message{
		Command: "JOIN",
		Params:  []string{"#vip", "wrongkey"},
	}))

	reply, err := second.NextMatching("475", timeout)
	require.NoError(t, err)
	require.Equal(t, []string{"second", "#vip", "Cannot join channel (+k)"}, reply.Params)

	// The correct key succeeds.
	require.NoError(t, second.Send(irc.Message{
		Command: "JOIN",
		Params:  []string{"#vip", "secret"},
	}))
	_, err = second.NextMatching("366", timeout)
	require.NoError(t, err)
}

// TestPingTimeoutClosesConnection uses very short timer delays: a
// silent peer receives a PING, and if it never answers, is dropped
// with a QUIT broadcast to co-channel members.
func TestPingTimeoutClosesConnection(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	cfg.PingRefreshDelay = 30 * time.Millisecond
	cfg.PingTimeoutDelay = 30 * time.Millisecond
	_, ln := startServer(t, cfg)

	watcher, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer watcher.Close()
	require.NoError(t, watcher.Register("watcher"))
	_, err = watcher.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, watcher.Send(irc.Message{Command: "JOIN", Params: []string{"#dead"}}))
	_, err = watcher.NextMatching("366", timeout)
	require.NoError(t, err)

	silent, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer silent.Close()
	require.NoError(t, silent.Register("silent"))
	_, err = silent.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, silent.Send(irc.Message{Command: "JOIN", Params: []string{"#dead"}}))
	_, err = silent.NextMatching("366", timeout)
	require.NoError(t, err)
	_, err = watcher.NextMatching("JOIN", timeout) // silent's join echo
	require.NoError(t, err)

	// silent never answers its PING, so after the two short delays it
	// should be dropped and watcher should see a QUIT.
	quit, err := watcher.NextMatching("QUIT", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, "silent", quit.SourceNick())
	require.Equal(t, "Ping timeout", quit.Params[0])
}

// TestNickChangeWhileJoined verifies that a nick change re-keys the
// user's channel memberships: the NICK echo reaches co-channel members,
// the renamed user can still speak on the channel, and the membership
// record is filed under the new nickname so a later disconnect can
// empty the channel.
func TestNickChangeWhileJoined(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	srv, ln := startServer(t, cfg)

	alice, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer alice.Close()
	require.NoError(t, alice.Register("alice"))
	_, err = alice.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, alice.Send(irc.Message{Command: "JOIN", Params: []string{"#room"}}))
	_, err = alice.NextMatching("366", timeout)
	require.NoError(t, err)

	bob, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer bob.Close()
	require.NoError(t, bob.Register("bob"))
	_, err = bob.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, bob.Send(irc.Message{Command: "JOIN", Params: []string{"#room"}}))
	_, err = bob.NextMatching("366", timeout)
	require.NoError(t, err)
	_, err = alice.NextMatching("JOIN", timeout) // bob's join echo
	require.NoError(t, err)

	require.NoError(t, bob.Send(irc.Message{Command: "NICK", Params: []string{"robert"}}))

	nickEcho, err := alice.NextMatching("NICK", timeout)
	require.NoError(t, err)
	require.Equal(t, "bob", nickEcho.SourceNick())
	require.Equal(t, []string{"robert"}, nickEcho.Params)

	// The membership record moved with the nick.
	srv.Channels.WithChannel("#room", func(ch *ircd.Channel, ok bool) {
		require.True(t, ok)
		_, stale := ch.Members["bob"]
		require.False(t, stale, "old nickname must not linger in the member map")
		_, current := ch.Members["robert"]
		require.True(t, current, "membership should be filed under the new nickname")
	})

	// The renamed user still reaches the channel.
	require.NoError(t, bob.Send(irc.Message{
		Command: "PRIVMSG",
		Params:  []string{"#room", "still here"},
	}))
	msg, err := alice.NextMatching("PRIVMSG", timeout)
	require.NoError(t, err)
	require.Equal(t, "robert", msg.SourceNick())
	require.Equal(t, []string{"#room", "still here"}, msg.Params)

	// And their departure still empties their membership.
	require.NoError(t, bob.Send(irc.Message{Command: "QUIT", Params: []string{"done"}}))
	quit, err := alice.NextMatching("QUIT", timeout)
	require.NoError(t, err)
	require.Equal(t, "robert", quit.SourceNick())

	require.Eventually(t, func() bool {
		var gone bool
		srv.Channels.WithChannel("#room", func(ch *ircd.Channel, ok bool) {
			if !ok {
				gone = true
				return
			}
			_, still := ch.Members["robert"]
			gone = !still
		})
		return gone
	}, timeout, 10*time.Millisecond, "quit should remove the renamed member")
}

// TestNamesOnPrivateChannelHidesMembers verifies that NAMES follows the
// same visibility rule as LIST: a non-member querying a private channel
// gets no roster, only the list terminator, while a member still sees
// the real names.
func TestNamesOnPrivateChannelHidesMembers(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	cfg.DefaultChanPrivate = true
	_, ln := startServer(t, cfg)

	alice, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer alice.Close()
	require.NoError(t, alice.Register("alice"))
	_, err = alice.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, alice.Send(irc.Message{Command: "JOIN", Params: []string{"#priv"}}))
	_, err = alice.NextMatching("366", timeout)
	require.NoError(t, err)

	bob, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer bob.Close()
	require.NoError(t, bob.Register("bob"))
	_, err = bob.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)

	require.NoError(t, bob.Send(irc.Message{Command: "NAMES", Params: []string{"#priv"}}))
	for {
		m, err := bob.Next(timeout)
		require.NoError(t, err)
		require.NotEqual(t, "353", m.Command,
			"a non-member must not receive a private channel's roster")
		if m.Command == "366" {
			break
		}
	}

	// A member still sees the roster.
	require.NoError(t, alice.Send(irc.Message{Command: "NAMES", Params: []string{"#priv"}}))
	names, err := alice.NextMatching("353", timeout)
	require.NoError(t, err)
	require.Equal(t, "#priv", names.Params[1])
	require.Contains(t, names.Params[2], "@alice")
}

// TestQuitBroadcastsToCoChannelMembers verifies the graceful
// disconnect: a member's QUIT reaches everyone sharing a channel with
// them, exactly once, and the quitter disappears from the server.
func TestQuitBroadcastsToCoChannelMembers(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	srv, ln := startServer(t, cfg)

	alice, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer alice.Close()
	require.NoError(t, alice.Register("alice"))
	_, err = alice.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, alice.Send(irc.Message{Command: "JOIN", Params: []string{"#room"}}))
	_, err = alice.NextMatching("366", timeout)
	require.NoError(t, err)

	bob, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer bob.Close()
	require.NoError(t, bob.Register("bob"))
	_, err = bob.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)
	require.NoError(t, bob.Send(irc.Message{Command: "JOIN", Params: []string{"#room"}}))
	_, err = bob.NextMatching("366", timeout)
	require.NoError(t, err)
	_, err = alice.NextMatching("JOIN", timeout) // bob's join echo
	require.NoError(t, err)

	require.NoError(t, bob.Send(irc.Message{
		Command: "QUIT",
		Params:  []string{"gone fishing"},
	}))

	quit, err := alice.NextMatching("QUIT", timeout)
	require.NoError(t, err)
	require.Equal(t, "bob", quit.SourceNick())
	require.Equal(t, []string{"gone fishing"}, quit.Params)

	require.Eventually(t, func() bool {
		_, ok := srv.Users.Lookup("bob")
		return !ok
	}, timeout, 10*time.Millisecond, "bob should leave the user directory after QUIT")
}

// TestUnknownCommand verifies the ERR_UNKNOWNCOMMAND reply.
func TestUnknownCommand(t *testing.T) {
	cfg := ircd.DefaultConfig("irc.local")
	_, ln := startServer(t, cfg)

	c, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Register("alice"))
	_, err = c.NextMatching(irc.ReplyWelcome, timeout)
	require.NoError(t, err)

	require.NoError(t, c.Send(irc.Message{Command: "FOO", Params: []string{"bar"}}))

	reply, err := c.NextMatching("421", timeout)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "FOO", "Unknown command"}, reply.Params)
}

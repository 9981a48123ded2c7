package ircd

import ircwire "github.com/horgh/irc"

// handlePrivmsg implements PRIVMSG <target>[,<target>...] :<text>.
func (s *Server) handlePrivmsg(c *Connection, m ircwire.Message) {
	s.dispatchMessage(c, m, "PRIVMSG", true)
}

// handleNotice implements NOTICE <target>[,<target>...] :<text>. Unlike
// PRIVMSG it never generates an automatic error reply back to the
// sender, per RFC 1459.
func (s *Server) handleNotice(c *Connection, m ircwire.Message) {
	s.dispatchMessage(c, m, "NOTICE", false)
}

// dispatchMessage is the shared PRIVMSG/NOTICE body: split the target
// list, enforce the 5-target cap, and deliver to each one by kind.
// reportErrors controls whether missing-arg/no-such-target failures are
// sent back to the sender, which is how the two commands' identical
// grammar ends up with different failure visibility.
func (s *Server) dispatchMessage(c *Connection, m ircwire.Message, cmdName string, reportErrors bool) {
	if len(m.Params) == 0 {
		if reportErrors {
			c.sendNumeric(errNoRecipient, "No recipient given ("+cmdName+")")
		}
		return
	}
	if len(m.Params) < 2 || m.Params[1] == "" {
		if reportErrors {
			c.sendNumeric(errNoTextToSend, "No text to send")
		}
		return
	}

	targets := splitTargets(m.Params[0])
	if len(targets) > maxTargets {
		if reportErrors {
			c.sendNumeric(errTooManyTargets, m.Params[0], "Too many targets")
		}
		return
	}

	text := m.Params[1]
	prefix := c.Prefix()

	for _, target := range targets {
		if target == "" {
			continue
		}
		if isValidChannel(canonicalizeChannel(target)) {
			s.deliverChannel(c, prefix, target, cmdName, text, reportErrors)
		} else {
			s.deliverUser(c, prefix, target, cmdName, text, reportErrors)
		}
	}
}

// deliverChannel sends text to every member of target except the
// sender, honoring no_outside_msg and moderated.
func (s *Server) deliverChannel(c *Connection, prefix, target, cmdName, text string, reportErrors bool) {
	canon := canonicalizeChannel(target)
	nickCanon := c.NickCanon()

	var failCode, failMsg string
	var recipients []*Connection

	s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
		if !ok {
			failCode, failMsg = errNoSuchChannel, "No such channel"
			return
		}

		mem, onChannel := ch.Members[nickCanon]
		if ch.NoOutside && !onChannel {
			failCode, failMsg = errCannotSendToChan, "Cannot send to channel"
			return
		}
		if ch.Moderated && (!onChannel || !mem.canSpeak) {
			failCode, failMsg = errCannotSendToChan, "Cannot send to channel"
			return
		}

		recipients = make([]*Connection, 0, len(ch.Members))
		for memberNick := range ch.Members {
			if memberNick == nickCanon {
				continue
			}
			conn, found := s.Users.Lookup(memberNick)
			if !found {
				continue
			}
			if cmdName == "NOTICE" && !conn.ReceivesNotices() {
				continue
			}
			recipients = append(recipients, conn)
		}
	})

	if failCode != "" {
		if reportErrors {
			c.sendNumeric(failCode, target, failMsg)
		}
		return
	}

	msg := command(prefix, cmdName, target, text)
	for _, conn := range recipients {
		conn.send(msg)
	}
}

// deliverUser sends text to a single nickname, replying to the sender
// with the recipient's away message if one is set.
func (s *Server) deliverUser(c *Connection, prefix, target, cmdName, text string, reportErrors bool) {
	targetConn, found := s.Users.Lookup(canonicalizeNick(target))
	if !found {
		if reportErrors {
			c.sendNumeric(errNoSuchNick, target, "No such nick/channel")
		}
		return
	}

	if cmdName == "NOTICE" && !targetConn.ReceivesNotices() {
		return
	}

	targetConn.send(command(prefix, cmdName, target, text))

	if cmdName == "PRIVMSG" {
		if away, awayMsg := targetConn.IsAway(); away {
			c.send(replyAway(s.Config.ServerName, c.Nick(), targetConn.Nick(), awayMsg))
		}
	}
}

// handleWallops implements WALLOPS :<text>, ops-only broadcast to every
// IRC operator who has opted into receiving them.
func (s *Server) handleWallops(c *Connection, m ircwire.Message) {
	if !c.IsIRCOp() {
		c.sendNumeric(errNoPrivileges, "Permission Denied- You're not an IRC operator")
		return
	}
	if len(m.Params) == 0 || m.Params[0] == "" {
		c.sendNumeric(errNeedMoreParams, "WALLOPS", "Not enough parameters")
		return
	}

	s.Users.BroadcastToIRCOps(command(c.Prefix(), "WALLOPS", m.Params[0]))
}

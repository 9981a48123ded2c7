package ircd

import (
	"log"
	"net"

	ircwire "github.com/horgh/irc"
)

// commandHandlers holds every post-registration command the dispatcher
// knows about. PASS/NICK/USER/QUIT/PING/PONG are handled directly in
// dispatch since they have their own registration-state gates; every
// other command requires a registered connection and is looked up here.
var commandHandlers = map[string]func(*Server, *Connection, ircwire.Message){
	"JOIN":   (*Server).handleJoin,
	"PART":   (*Server).handlePart,
	"TOPIC":  (*Server).handleTopic,
	"KICK":   (*Server).handleKick,
	"INVITE": (*Server).handleInvite,
	"LIST":   (*Server).handleList,
	"NAMES":  (*Server).handleNames,

	"PRIVMSG": (*Server).handlePrivmsg,
	"NOTICE":  (*Server).handleNotice,
	"WALLOPS": (*Server).handleWallops,

	"OPER":    (*Server).handleOper,
	"KILL":    (*Server).handleKill,
	"AWAY":    (*Server).handleAway,
	"LUSERS":  (*Server).handleLusers,
	"VERSION": (*Server).handleVersion,
	"TIME":    (*Server).handleTime,
	"ADMIN":   (*Server).handleAdmin,
	"INFO":    (*Server).handleInfo,
	"REHASH":  (*Server).handleRehash,
	"RESTART": (*Server).handleRestart,

	"SERVER":  (*Server).handleLinkingNotImplemented,
	"SQUIT":   (*Server).handleLinkingNotImplemented,
	"CONNECT": (*Server).handleLinkingNotImplemented,
	"TRACE":   (*Server).handleTrace,
	"STATS":   (*Server).handleStats,
	"WHO":     (*Server).handleWho,
	"WHOIS":   (*Server).handleWhois,
	"WHOWAS":  (*Server).handleWhowas,
}

// setupConnection finishes accepting a TCP connection: resolve its
// hostname, send the AUTH notices RFC 1459 implementations traditionally
// print during the pause before registration, then start its read/write
// loops and ping timers.
func (s *Server) setupConnection(raw net.Conn) {
	nc := newNetConn(raw, 2*(s.Config.PingRefreshDelay+s.Config.PingTimeoutDelay))
	id := s.newConnectionID()
	c := newConnection(id, nc, s)
	c.hostname = s.Resolver.Resolve(nc.IP())

	s.sendAuthNotices(c)

	s.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	c.startPingTimers()

	log.Printf("accepted connection %s", c)
}

func (s *Server) sendAuthNotices(c *Connection) {
	for _, line := range []string{
		"*** Looking up your hostname...",
		"*** Found your hostname",
		"*** Checking Ident",
		"*** No Ident response",
	} {
		c.send(command(s.Config.ServerName, "NOTICE", "AUTH", line))
	}
}

// dispatch routes one parsed message to its handler. It never blocks:
// every handler only queues writes and mutates directories/state that
// are themselves non-blocking.
func (s *Server) dispatch(c *Connection, m ircwire.Message) {
	switch m.Command {
	case "PASS":
		s.handlePass(c, m)
		return
	case "NICK":
		s.handleNick(c, m)
		return
	case "USER":
		s.handleUser(c, m)
		return
	case "QUIT":
		s.handleQuit(c, m)
		return
	case "PING":
		s.handlePingCmd(c, m)
		return
	case "PONG":
		s.handlePongCmd(c, m)
		return
	}

	if !c.IsRegistered() {
		c.sendNumeric(errNotRegistered, "You have not registered")
		return
	}

	h, ok := commandHandlers[m.Command]
	if !ok {
		c.sendNumeric(errUnknownCommand, m.Command, "Unknown command")
		return
	}
	h(s, c, m)
}

func (s *Server) handlePass(c *Connection, m ircwire.Message) {
	if len(m.Params) == 0 {
		c.sendNumeric(errNeedMoreParams, "PASS", "Not enough parameters")
		return
	}

	c.stateMu.Lock()
	state := c.state
	if state == waitForPass && s.Config.PasswordAccepted(m.Params[0]) {
		c.state = waitForUser
	}
	c.stateMu.Unlock()

	if state == readyForMsg {
		c.sendNumeric(errAlreadyRegistred, "You may not reregister")
	}
	// waitForUser: no password is pending (none was required, or one was
	// already accepted); a PASS here is a harmless no-op.
}

func (s *Server) handleNick(c *Connection, m ircwire.Message) {
	if len(m.Params) == 0 {
		c.sendNumeric(errNoNicknameGiven, "No nickname given")
		return
	}
	nick := m.Params[0]

	c.stateMu.Lock()
	state := c.state
	c.stateMu.Unlock()

	if state == waitForPass {
		// state only stays waitForPass here if PASS was missing or wrong;
		// a correct PASS already advanced it to waitForUser.
		c.sendNumeric(errPasswdMismatch, "Password incorrect")
		return
	}

	if !isValidNick(nick) {
		c.sendNumeric(errErroneusNickname, nick, "Erroneous nickname")
		return
	}

	switch state {
	case waitForUser:
		c.stateMu.Lock()
		c.nick = nick
		c.nickCanon = canonicalizeNick(nick)
		c.gotNick = true
		c.stateMu.Unlock()
		s.tryCompleteRegistration(c)

	case readyForMsg:
		canon := canonicalizeNick(nick)
		old := c.NickCanon()
		if canon == old {
			c.stateMu.Lock()
			c.nick = nick
			c.stateMu.Unlock()
			return
		}

		if err := s.Users.Rename(old, canon, c); err != nil {
			c.sendNumeric(errNicknameInUse, nick, "Nickname is already in use")
			return
		}
		s.Channels.RenameMember(c.JoinedChannels(), old, canon)

		oldPrefix := c.Prefix()
		c.stateMu.Lock()
		c.nick = nick
		c.nickCanon = canon
		c.stateMu.Unlock()

		nickMsg := command(oldPrefix, "NICK", nick)
		for _, conn := range s.coChannelConnections(c, true) {
			conn.send(nickMsg)
		}
	}
}

func (s *Server) handleUser(c *Connection, m ircwire.Message) {
	c.stateMu.Lock()
	state := c.state
	c.stateMu.Unlock()

	if state == readyForMsg {
		c.sendNumeric(errAlreadyRegistred, "You may not reregister")
		return
	}
	if state == waitForPass {
		c.sendNumeric(errPasswdMismatch, "Password incorrect")
		return
	}
	if len(m.Params) < 4 {
		c.sendNumeric(errNeedMoreParams, "USER", "Not enough parameters")
		return
	}
	if !isValidUser(m.Params[0]) {
		c.sendNumeric(errNeedMoreParams, "USER", "Invalid username")
		return
	}

	c.stateMu.Lock()
	c.username = "~" + m.Params[0]
	c.realName = m.Params[3]
	c.gotUser = true
	c.stateMu.Unlock()

	s.tryCompleteRegistration(c)
}

// tryCompleteRegistration finishes registration once both NICK and USER
// have been received, reserving the nickname in the user directory and
// sending the welcome sequence. If the nickname has since been claimed
// by a faster connection, it asks for a new one and stays in
// waitForUser.
func (s *Server) tryCompleteRegistration(c *Connection) {
	c.stateMu.Lock()
	if c.state != waitForUser || !c.gotNick || !c.gotUser {
		c.stateMu.Unlock()
		return
	}
	nick := c.nick
	canon := c.nickCanon
	c.stateMu.Unlock()

	if err := s.Users.Reserve(canon, c); err != nil {
		if err == ErrUserCapReached {
			c.triggerClose("Server full")
			return
		}
		c.sendNumeric(errNicknameInUse, nick, "Nickname is already in use")
		c.stateMu.Lock()
		c.gotNick = false
		c.stateMu.Unlock()
		return
	}

	c.stateMu.Lock()
	c.state = readyForMsg
	c.stateMu.Unlock()

	s.sendWelcome(c)
}

func (s *Server) sendWelcome(c *Connection) {
	uhost := userPrefix(c.Nick(), c.username, c.hostname)
	c.send(replyWelcome(s.Config.ServerName, c.Nick(), uhost, s.Config.ServerName))
	c.send(replyYourHost(s.Config.ServerName, c.Nick(), s.Config.Version))
	c.send(replyCreated(s.Config.ServerName, c.Nick(), s.Config.CreatedDate))
	c.send(replyMyInfo(s.Config.ServerName, c.Nick(), s.Config.Version))

	if s.Config.SendStats {
		s.sendLuserBlock(c)
	}
	if s.Config.SendMOTD {
		s.sendMOTD(c)
	}
}

func (s *Server) sendLuserBlock(c *Connection) {
	total := s.Users.Count()
	invisible := s.Users.CountMatching(func(cn *Connection) bool { return cn.IsInvisible() })
	ircops := s.Users.CountMatching(func(cn *Connection) bool { return cn.IsIRCOp() })

	c.send(replyLUserClient(s.Config.ServerName, c.Nick(), total-invisible, invisible, 1))
	c.send(replyLUserOp(s.Config.ServerName, c.Nick(), ircops))
	c.send(replyLUserUnknown(s.Config.ServerName, c.Nick(), 0))
	c.send(replyLUserChannels(s.Config.ServerName, c.Nick(), s.Channels.Count()))
	c.send(replyLUserMe(s.Config.ServerName, c.Nick(), total, 0))
}

func (s *Server) sendMOTD(c *Connection) {
	if !s.Config.MOTDFileSeen {
		c.send(replyFileError(s.Config.ServerName, c.Nick(), "MOTD"))
		c.send(replyNoMOTD(s.Config.ServerName, c.Nick()))
		return
	}

	c.send(replyMOTDStart(s.Config.ServerName, c.Nick()))
	for _, line := range s.Config.MOTDLines {
		c.send(replyMOTDLine(s.Config.ServerName, c.Nick(), line))
	}
	c.send(replyEndOfMOTD(s.Config.ServerName, c.Nick()))
}

func (s *Server) handleQuit(c *Connection, m ircwire.Message) {
	reason := c.Nick()
	if len(m.Params) > 0 && m.Params[0] != "" {
		reason = m.Params[0]
	}
	c.triggerClose(reason)
}

func (s *Server) handlePingCmd(c *Connection, m ircwire.Message) {
	if len(m.Params) == 0 {
		c.sendNumeric(errNeedMoreParams, "PING", "Not enough parameters")
		return
	}
	c.send(command(s.Config.ServerName, "PONG", s.Config.ServerName, m.Params[0]))
}

func (s *Server) handlePongCmd(c *Connection, m ircwire.Message) {
	if len(m.Params) == 0 {
		return
	}
	c.handlePong(m.Params[len(m.Params)-1])
}

// handleDisconnect runs the broadcast+cleanup portion of the graceful
// disconnect sequence: QUIT to co-channel peers, then membership and
// directory removal. triggerClose runs the timer/socket portion around
// it, plus idempotency.
func (s *Server) handleDisconnect(c *Connection, reason string) {
	if c.IsRegistered() {
		quitMsg := command(c.Prefix(), "QUIT", reason)
		for _, conn := range s.coChannelConnections(c, false) {
			conn.send(quitMsg)
		}
	}

	canon := c.NickCanon()
	for _, chCanon := range c.JoinedChannels() {
		s.Channels.WithChannel(chCanon, func(ch *Channel, ok bool) {
			if !ok {
				return
			}
			delete(ch.Members, canon)
		})
		s.Channels.RemoveIfEmpty(chCanon)
	}

	s.Users.Remove(canon, c)
}

// coChannelConnections returns the deduplicated set of connections that
// share at least one channel with c. includeSelf controls whether c
// itself (which is always a member of its own joined channels) is
// included.
func (s *Server) coChannelConnections(c *Connection, includeSelf bool) []*Connection {
	seen := map[string]*Connection{}
	self := c.NickCanon()

	for _, chCanon := range c.JoinedChannels() {
		s.Channels.WithChannel(chCanon, func(ch *Channel, ok bool) {
			if !ok {
				return
			}
			for nickCanon := range ch.Members {
				if nickCanon == self && !includeSelf {
					continue
				}
				if _, already := seen[nickCanon]; already {
					continue
				}
				if conn, found := s.Users.Lookup(nickCanon); found {
					seen[nickCanon] = conn
				}
			}
		})
	}

	out := make([]*Connection, 0, len(seen))
	for _, conn := range seen {
		out = append(out, conn)
	}
	return out
}

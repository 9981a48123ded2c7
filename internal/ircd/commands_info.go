package ircd

import ircwire "github.com/horgh/irc"

// handleOper implements OPER <user> <pass>, promoting the connection to
// IRC operator if the pair matches a configured entry.
func (s *Server) handleOper(c *Connection, m ircwire.Message) {
	if len(m.Params) < 2 {
		c.sendNumeric(errNeedMoreParams, "OPER", "Not enough parameters")
		return
	}

	pass, ok := s.Config.Opers[m.Params[0]]
	if !ok || pass != m.Params[1] {
		c.sendNumeric(errNoPrivileges, "Permission Denied- You're not an IRC operator")
		return
	}

	c.setOper()
	c.send(replyYoureOper(s.Config.ServerName, c.Nick()))
}

// handleKill implements KILL <nick> <comment>, ops-only, force-closing
// the named connection.
func (s *Server) handleKill(c *Connection, m ircwire.Message) {
	if !c.IsIRCOp() {
		c.sendNumeric(errNoPrivileges, "Permission Denied- You're not an IRC operator")
		return
	}
	if len(m.Params) < 2 {
		c.sendNumeric(errNeedMoreParams, "KILL", "Not enough parameters")
		return
	}

	target, found := s.Users.Lookup(canonicalizeNick(m.Params[0]))
	if !found {
		c.sendNumeric(errNoSuchNick, m.Params[0], "No such nick/channel")
		return
	}

	target.triggerClose("Killed by " + c.Nick() + ": " + m.Params[1])
}

// handleAway implements AWAY [:<message>]; no argument clears away
// status, any argument sets it.
func (s *Server) handleAway(c *Connection, m ircwire.Message) {
	if len(m.Params) == 0 || m.Params[0] == "" {
		c.setAway(false, "")
		c.send(replyUnaway(s.Config.ServerName, c.Nick()))
		return
	}

	c.setAway(true, m.Params[0])
	c.send(replyNowAway(s.Config.ServerName, c.Nick()))
}

func (s *Server) handleLusers(c *Connection, m ircwire.Message) {
	s.sendLuserBlock(c)
}

func (s *Server) handleVersion(c *Connection, m ircwire.Message) {
	c.send(replyVersion(s.Config.ServerName, c.Nick(), s.Config.Version))
}

func (s *Server) handleTime(c *Connection, m ircwire.Message) {
	c.send(replyTime(s.Config.ServerName, c.Nick(), s.Clock.Now().Format("Mon Jan 2 2006 15:04:05 MST")))
}

func (s *Server) handleAdmin(c *Connection, m ircwire.Message) {
	c.send(replyAdminMe(s.Config.ServerName, c.Nick()))
	c.send(replyAdminLoc1(s.Config.ServerName, c.Nick(), s.Config.AdminLocation1))
	c.send(replyAdminLoc2(s.Config.ServerName, c.Nick(), s.Config.AdminLocation2))
	c.send(replyAdminMail(s.Config.ServerName, c.Nick(), s.Config.AdminMail))
}

func (s *Server) handleInfo(c *Connection, m ircwire.Message) {
	for _, line := range s.Config.ServerInfos {
		c.send(replyInfoLine(s.Config.ServerName, c.Nick(), line))
	}
	c.send(replyEndOfInfo(s.Config.ServerName, c.Nick()))
}

// handleRehash implements REHASH, ops-only. There is no config file to
// reload at runtime, so it only acknowledges the request.
func (s *Server) handleRehash(c *Connection, m ircwire.Message) {
	if !c.IsIRCOp() {
		c.sendNumeric(errNoPrivileges, "Permission Denied- You're not an IRC operator")
		return
	}
	c.send(replyRehashing(s.Config.ServerName, c.Nick()))
}

// handleRestart implements RESTART, ops-only: asks the server to begin
// a graceful shutdown via the same path a supervising process would use.
func (s *Server) handleRestart(c *Connection, m ircwire.Message) {
	if !c.IsIRCOp() {
		c.sendNumeric(errNoPrivileges, "Permission Denied- You're not an IRC operator")
		return
	}
	go s.BeginShutdown("Server restarting")
}

// handleLinkingNotImplemented answers SERVER/SQUIT/CONNECT, the
// server-to-server commands this implementation never supports, with
// the RFC "not enough privileges" numeric rather than silently dropping
// them.
func (s *Server) handleLinkingNotImplemented(c *Connection, m ircwire.Message) {
	c.sendNumeric(errNoPrivileges, "Permission Denied- You're not an IRC operator")
}

// handleTrace, handleStats, handleWho, handleWhois, and handleWhowas
// answer their commands with only the terminating numeric a real client
// expects to end the (empty) listing; the detail rows are reserved for
// future work.
func (s *Server) handleTrace(c *Connection, m ircwire.Message) {
	c.sendNumeric(rplTraceEnd, "End of TRACE")
}

func (s *Server) handleStats(c *Connection, m ircwire.Message) {
	query := "*"
	if len(m.Params) > 0 {
		query = m.Params[0]
	}
	c.sendNumeric(rplEndOfStats, query, "End of /STATS report")
}

func (s *Server) handleWho(c *Connection, m ircwire.Message) {
	mask := "*"
	if len(m.Params) > 0 {
		mask = m.Params[0]
	}
	c.sendNumeric(rplEndOfWho, mask, "End of /WHO list")
}

func (s *Server) handleWhois(c *Connection, m ircwire.Message) {
	target := "*"
	if len(m.Params) > 0 {
		target = m.Params[len(m.Params)-1]
	}
	c.send(replyEndOfWhois(s.Config.ServerName, c.Nick(), target))
}

func (s *Server) handleWhowas(c *Connection, m ircwire.Message) {
	nick := "*"
	if len(m.Params) > 0 {
		nick = m.Params[0]
	}
	c.sendNumeric(rplEndOfWhowas, nick, "End of WHOWAS")
}

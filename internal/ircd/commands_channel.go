package ircd

import ircwire "github.com/horgh/irc"

// handleJoin implements JOIN <chan>[,<chan>...] [<key>[,<key>...]],
// joining each named channel in turn. A channel is created on the spot
// the first time someone joins a syntactically valid name that isn't
// already registered; its creator becomes its first operator.
func (s *Server) handleJoin(c *Connection, m ircwire.Message) {
	if len(m.Params) == 0 {
		c.sendNumeric(errNeedMoreParams, "JOIN", "Not enough parameters")
		return
	}

	names := splitTargets(m.Params[0])
	var keys []string
	if len(m.Params) > 1 {
		keys = splitTargets(m.Params[1])
	}

	for i, name := range names {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		s.joinOne(c, name, key)
	}
}

func (s *Server) joinOne(c *Connection, name, key string) {
	canon := canonicalizeChannel(name)
	if !isValidChannel(canon) {
		c.sendNumeric(errNoSuchChannel, name, "No such channel")
		return
	}

	if s.Config.MaxJoinsPerUser > 0 && c.ChannelCount() >= s.Config.MaxJoinsPerUser {
		c.sendNumeric(errTooManyChannels, name, "You have joined too many channels")
		return
	}

	_, created, err := s.Channels.GetOrCreate(name, canon, s.Config)
	if err != nil {
		if err == ErrChannelCapReached {
			c.sendNumeric(errTooManyChannels, name, "Cannot create channel")
			return
		}
		c.sendNumeric(errNoSuchChannel, name, "No such channel")
		return
	}

	nickCanon := c.NickCanon()
	prefix := c.Prefix()
	ircOp := c.IsIRCOp()

	var failCode, failMsg string
	var joined bool

	s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
		if !ok {
			failCode, failMsg = errNoSuchChannel, "No such channel"
			return
		}

		if ch.hasMember(nickCanon) {
			return
		}

		if !created {
			if ch.isBanned(prefix) && !ch.isInvited(nickCanon) {
				failCode, failMsg = errBannedFromChan, "Cannot join channel (+b)"
				return
			}
			if ch.Key != "" && ch.Key != key {
				failCode, failMsg = errBadChannelKey, "Cannot join channel (+k)"
				return
			}
			if ch.InviteOnly && !ch.isInvited(nickCanon) {
				failCode, failMsg = errInviteOnlyChan, "Cannot join channel (+i)"
				return
			}
			if ch.isFull() {
				failCode, failMsg = errChannelIsFull, "Cannot join channel (+l)"
				return
			}
		}

		isOp := created || ircOp
		canSpeak := true
		if ch.Moderated && !isOp {
			canSpeak = false
		}
		ch.Members[nickCanon] = &member{isOp: isOp, canSpeak: canSpeak}
		delete(ch.Invited, nickCanon)
		joined = true
	})

	if failCode != "" {
		c.sendNumeric(failCode, name, failMsg)
		return
	}
	if !joined {
		return
	}

	c.addChannel(canon)

	joinMsg := command(prefix, "JOIN", name)
	s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
		if !ok {
			return
		}
		for memberNick := range ch.Members {
			if conn, found := s.Users.Lookup(memberNick); found {
				conn.send(joinMsg)
			}
		}
	})

	s.sendTopicAndNames(c, canon, name)
}

func (s *Server) sendTopicAndNames(c *Connection, canon, name string) {
	s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
		if !ok {
			return
		}
		if ch.TopicSet {
			c.send(replyTopic(s.Config.ServerName, c.Nick(), name, ch.Topic))
		} else {
			c.send(replyNoTopic(s.Config.ServerName, c.Nick(), name))
		}
	})

	var names string
	s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
		if !ok {
			return
		}
		displayNick := make(map[string]string, len(ch.Members))
		for nickCanon := range ch.Members {
			if conn, found := s.Users.Lookup(nickCanon); found {
				displayNick[nickCanon] = conn.Nick()
			}
		}
		names = ch.namesList(displayNick)
	})

	c.send(replyNamReply(s.Config.ServerName, c.Nick(), name, names))
	c.send(replyEndOfNames(s.Config.ServerName, c.Nick(), name))
}

// handlePart implements PART <chan>[,<chan>...]. The PART echo goes to
// every member including the parter before they're removed.
func (s *Server) handlePart(c *Connection, m ircwire.Message) {
	if len(m.Params) == 0 {
		c.sendNumeric(errNeedMoreParams, "PART", "Not enough parameters")
		return
	}

	nickCanon := c.NickCanon()
	prefix := c.Prefix()

	for _, name := range splitTargets(m.Params[0]) {
		canon := canonicalizeChannel(name)

		var failCode, failMsg string
		var left bool

		s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
			if !ok {
				failCode, failMsg = errNoSuchChannel, "No such channel"
				return
			}
			if !ch.hasMember(nickCanon) {
				failCode, failMsg = errNotOnChannel, "You're not on that channel"
				return
			}

			partMsg := command(prefix, "PART", name)
			for memberNick := range ch.Members {
				if conn, found := s.Users.Lookup(memberNick); found {
					conn.send(partMsg)
				}
			}
			delete(ch.Members, nickCanon)
			left = true
		})

		if failCode != "" {
			c.sendNumeric(failCode, name, failMsg)
			continue
		}
		if left {
			s.Channels.RemoveIfEmpty(canon)
			c.removeChannel(canon)
		}
	}
}

// handleTopic implements TOPIC <chan> [:<text>]: one argument reads the
// current topic, two sets it (subject to topic_ops_only).
func (s *Server) handleTopic(c *Connection, m ircwire.Message) {
	if len(m.Params) == 0 {
		c.sendNumeric(errNeedMoreParams, "TOPIC", "Not enough parameters")
		return
	}
	name := m.Params[0]
	canon := canonicalizeChannel(name)

	if len(m.Params) == 1 {
		s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
			if !ok {
				c.sendNumeric(errNoSuchChannel, name, "No such channel")
				return
			}
			if ch.TopicSet {
				c.send(replyTopic(s.Config.ServerName, c.Nick(), name, ch.Topic))
			} else {
				c.send(replyNoTopic(s.Config.ServerName, c.Nick(), name))
			}
		})
		return
	}

	text := m.Params[1]
	nickCanon := c.NickCanon()
	prefix := c.Prefix()

	s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
		if !ok {
			c.sendNumeric(errNoSuchChannel, name, "No such channel")
			return
		}
		if !ch.hasMember(nickCanon) {
			c.sendNumeric(errNotOnChannel, name, "You're not on that channel")
			return
		}
		if ch.TopicOpOnly && !ch.isOp(nickCanon) {
			c.sendNumeric(errChanOPrivsNeeded, name, "You're not channel operator")
			return
		}

		ch.Topic = text
		ch.TopicSet = true

		topicMsg := command(prefix, "TOPIC", name, text)
		for memberNick := range ch.Members {
			if conn, found := s.Users.Lookup(memberNick); found {
				conn.send(topicMsg)
			}
		}
	})
}

// handleKick implements KICK <chan> <nick> [:<comment>].
func (s *Server) handleKick(c *Connection, m ircwire.Message) {
	if len(m.Params) < 2 {
		c.sendNumeric(errNeedMoreParams, "KICK", "Not enough parameters")
		return
	}
	name := m.Params[0]
	targetNick := m.Params[1]
	comment := c.Nick()
	if len(m.Params) > 2 {
		comment = m.Params[2]
	}

	canon := canonicalizeChannel(name)
	targetCanon := canonicalizeNick(targetNick)
	nickCanon := c.NickCanon()
	prefix := c.Prefix()

	var targetConn *Connection
	var kicked bool

	s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
		if !ok {
			c.sendNumeric(errNoSuchChannel, name, "No such channel")
			return
		}
		if !ch.hasMember(nickCanon) {
			c.sendNumeric(errNotOnChannel, name, "You're not on that channel")
			return
		}
		if !ch.isOp(nickCanon) {
			c.sendNumeric(errChanOPrivsNeeded, name, "You're not channel operator")
			return
		}
		if !ch.hasMember(targetCanon) {
			c.sendNumeric(errUserNotInChannel, targetNick, name, "They aren't on that channel")
			return
		}

		kickMsg := command(prefix, "KICK", name, targetNick, comment)
		for memberNick := range ch.Members {
			if conn, found := s.Users.Lookup(memberNick); found {
				conn.send(kickMsg)
			}
		}
		delete(ch.Members, targetCanon)
		targetConn, _ = s.Users.Lookup(targetCanon)
		kicked = true
	})

	if !kicked {
		return
	}
	if targetConn != nil {
		targetConn.removeChannel(canon)
	}
	s.Channels.RemoveIfEmpty(canon)
}

// handleInvite implements INVITE <nick> <chan>.
func (s *Server) handleInvite(c *Connection, m ircwire.Message) {
	if len(m.Params) < 2 {
		c.sendNumeric(errNeedMoreParams, "INVITE", "Not enough parameters")
		return
	}
	targetNick := m.Params[0]
	name := m.Params[1]

	targetCanon := canonicalizeNick(targetNick)
	target, found := s.Users.Lookup(targetCanon)
	if !found {
		c.sendNumeric(errNoSuchNick, targetNick, "No such nick/channel")
		return
	}

	canon := canonicalizeChannel(name)
	nickCanon := c.NickCanon()
	invited := false

	s.Channels.WithChannel(canon, func(ch *Channel, ok bool) {
		if !ok {
			c.sendNumeric(errNoSuchChannel, name, "No such channel")
			return
		}
		if !ch.hasMember(nickCanon) {
			c.sendNumeric(errNotOnChannel, name, "You're not on that channel")
			return
		}
		if ch.InviteOnly && !ch.isOp(nickCanon) {
			c.sendNumeric(errChanOPrivsNeeded, name, "You're not channel operator")
			return
		}
		if ch.hasMember(targetCanon) {
			c.sendNumeric(errUserOnChannel, targetNick, name, "is already on channel")
			return
		}
		ch.Invited[targetCanon] = struct{}{}
		invited = true
	})

	if !invited {
		return
	}

	target.send(command(c.Prefix(), "INVITE", targetNick, name))
	c.send(replyInviting(s.Config.ServerName, c.Nick(), targetNick, name))
}

// handleList implements LIST [<chan>[,<chan>...]].
func (s *Server) handleList(c *Connection, m ircwire.Message) {
	c.send(replyListStart(s.Config.ServerName, c.Nick()))

	nickCanon := c.NickCanon()
	listCh := func(ch *Channel) {
		if ch.Secret && !ch.hasMember(nickCanon) {
			return
		}
		if ch.Private && !ch.hasMember(nickCanon) {
			c.send(replyList(s.Config.ServerName, c.Nick(), ch.Name, 0, "Prv"))
			return
		}
		c.send(replyList(s.Config.ServerName, c.Nick(), ch.Name, len(ch.Members), ch.Topic))
	}

	if len(m.Params) == 0 || m.Params[0] == "" {
		s.Channels.ForEach(listCh)
	} else {
		for _, name := range splitTargets(m.Params[0]) {
			s.Channels.WithChannel(canonicalizeChannel(name), func(ch *Channel, ok bool) {
				if ok {
					listCh(ch)
				}
			})
		}
	}

	c.send(replyListEnd(s.Config.ServerName, c.Nick()))
}

// handleNames implements NAMES [<chan>[,<chan>...]]; with no arguments
// it lists membership for every channel visible to the caller.
func (s *Server) handleNames(c *Connection, m ircwire.Message) {
	nickCanon := c.NickCanon()

	namesFor := func(ch *Channel) {
		if ch.Secret && !ch.hasMember(nickCanon) {
			return
		}
		if ch.Private && !ch.hasMember(nickCanon) {
			// Same visibility rule LIST applies: a private channel admits
			// its existence to non-members but never its roster.
			c.send(replyEndOfNames(s.Config.ServerName, c.Nick(), ch.Name))
			return
		}
		displayNick := make(map[string]string, len(ch.Members))
		for memberNick := range ch.Members {
			if conn, found := s.Users.Lookup(memberNick); found {
				displayNick[memberNick] = conn.Nick()
			}
		}
		c.send(replyNamReply(s.Config.ServerName, c.Nick(), ch.Name, ch.namesList(displayNick)))
		c.send(replyEndOfNames(s.Config.ServerName, c.Nick(), ch.Name))
	}

	if len(m.Params) == 0 || m.Params[0] == "" {
		s.Channels.ForEach(namesFor)
		return
	}

	for _, name := range splitTargets(m.Params[0]) {
		s.Channels.WithChannel(canonicalizeChannel(name), func(ch *Channel, ok bool) {
			if ok {
				namesFor(ch)
			}
		})
	}
}

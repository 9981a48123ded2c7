package ircd

// member is a single channel membership record: flags live here rather
// than on the user, since they only make sense in the context of one
// channel at a time.
type member struct {
	isOp     bool
	canSpeak bool
}

// Channel holds the directory-owned state of one channel. All fields
// are only ever read or written while the owning ChannelDirectory's
// lock is held; Channel itself has no lock of its own.
type Channel struct {
	Name string

	Topic    string
	TopicSet bool

	Key         string
	UserLimit   int
	Private     bool
	Secret      bool
	InviteOnly  bool
	TopicOpOnly bool
	NoOutside   bool
	Moderated   bool

	Bans    map[string]struct{}
	Invited map[string]struct{}

	// Members maps a canonical nickname to its membership record.
	Members map[string]*member
}

func newChannel(name string, cfg Config) *Channel {
	return &Channel{
		Name:        name,
		UserLimit:   cfg.UsersLimitPerChannel,
		Private:     cfg.DefaultChanPrivate,
		Secret:      cfg.DefaultChanSecret,
		InviteOnly:  cfg.DefaultChanInviteOnly,
		TopicOpOnly: cfg.DefaultChanTopicOpsOnly,
		NoOutside:   cfg.DefaultChanNoOutsideMsg,
		Moderated:   cfg.DefaultChanModerated,
		Bans:        map[string]struct{}{},
		Invited:     map[string]struct{}{},
		Members:     map[string]*member{},
	}
}

func (ch *Channel) isEmpty() bool {
	return len(ch.Members) == 0
}

func (ch *Channel) isFull() bool {
	return ch.UserLimit > 0 && len(ch.Members) >= ch.UserLimit
}

func (ch *Channel) hasMember(nickCanon string) bool {
	_, ok := ch.Members[nickCanon]
	return ok
}

func (ch *Channel) isOp(nickCanon string) bool {
	m, ok := ch.Members[nickCanon]
	return ok && m.isOp
}

func (ch *Channel) isInvited(nickCanon string) bool {
	_, ok := ch.Invited[nickCanon]
	return ok
}

func (ch *Channel) isBanned(prefix string) bool {
	return banMaskMatches(ch.Bans, prefix)
}

// namesList renders the space-separated RPL_NAMREPLY body for one
// channel, prefixing op nicks with '@'.
func (ch *Channel) namesList(displayNick map[string]string) string {
	out := ""
	for nickCanon, m := range ch.Members {
		if out != "" {
			out += " "
		}
		nick := displayNick[nickCanon]
		if m.isOp {
			out += "@" + nick
		} else {
			out += nick
		}
	}
	return out
}

package ircd

import (
	"fmt"

	ircwire "github.com/horgh/irc"
)

// Reply Formatter: every function here builds one wire-ready
// ircwire.Message. The formatter owns no state; callers supply the
// server name (origin for numerics) or a user prefix (origin for
// command echoes) explicitly.
//
// Numeric replies always carry the target nickname (or "*" before one
// is known, as ircd-ratbox does) as their first parameter.

func targetOrStar(nick string) string {
	if nick == "" {
		return "*"
	}
	return nick
}

// numeric builds a server-origin numeric reply.
func numeric(serverName, nick, code string, params ...string) ircwire.Message {
	all := make([]string, 0, len(params)+1)
	all = append(all, targetOrStar(nick))
	all = append(all, params...)
	return ircwire.Message{Prefix: serverName, Command: code, Params: all}
}

// command builds a command echo originating from prefix (a user prefix
// or the server name).
func command(prefix, cmd string, params ...string) ircwire.Message {
	return ircwire.Message{Prefix: prefix, Command: cmd, Params: params}
}

// userPrefix builds the "nick!user@host" origin for client-originated
// commands. user is expected to already carry its leading '~'.
func userPrefix(nick, user, host string) string {
	return fmt.Sprintf("%s!%s@%s", nick, user, host)
}

// --- Welcome sequence (001-004) ---

func replyWelcome(serverName, nick, uhost, network string) ircwire.Message {
	return numeric(serverName, nick, rplWelcome,
		fmt.Sprintf("Welcome to the %s IRC network %s", network, uhost))
}

func replyYourHost(serverName, nick, version string) ircwire.Message {
	return numeric(serverName, nick, rplYourHost,
		fmt.Sprintf("Your host is %s, running SkyIRC version %s", serverName, version))
}

func replyCreated(serverName, nick, createdDate string) ircwire.Message {
	return numeric(serverName, nick, rplCreated,
		fmt.Sprintf("This server was created %s", createdDate))
}

func replyMyInfo(serverName, nick, version string) ircwire.Message {
	return numeric(serverName, nick, rplMyInfo, serverName, version, "io", "ntsi")
}

// --- LUSER family (251-255) ---

func replyLUserClient(serverName, nick string, users, invisible, servers int) ircwire.Message {
	return numeric(serverName, nick, rplLUserClient,
		fmt.Sprintf("There are %d users and %d invisible on %d servers", users, invisible, servers))
}

func replyLUserOp(serverName, nick string, ops int) ircwire.Message {
	return numeric(serverName, nick, rplLUserOp, fmt.Sprintf("%d", ops), "operator(s) online")
}

func replyLUserUnknown(serverName, nick string, unknown int) ircwire.Message {
	return numeric(serverName, nick, rplLUserUnknown, fmt.Sprintf("%d", unknown), "unknown connection(s)")
}

func replyLUserChannels(serverName, nick string, channels int) ircwire.Message {
	return numeric(serverName, nick, rplLUserChannels, fmt.Sprintf("%d", channels), "channels formed")
}

func replyLUserMe(serverName, nick string, clients, servers int) ircwire.Message {
	return numeric(serverName, nick, rplLUserMe,
		fmt.Sprintf("I have %d clients and %d servers", clients, servers))
}

// --- MOTD ---

func replyMOTDStart(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplMOTDStart,
		fmt.Sprintf("- %s Message of the day - ", serverName))
}

func replyMOTDLine(serverName, nick, line string) ircwire.Message {
	return numeric(serverName, nick, rplMOTD, "- "+line)
}

func replyEndOfMOTD(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplEndOfMOTD, "End of /MOTD command")
}

func replyNoMOTD(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, errNoMOTD, "MOTD File is missing")
}

func replyFileError(serverName, nick, context string) ircwire.Message {
	return numeric(serverName, nick, errFileError, context, "File error doing FILE operation")
}

// --- Channel / membership replies ---

func replyNoTopic(serverName, nick, channel string) ircwire.Message {
	return numeric(serverName, nick, rplNoTopic, channel, "No topic is set")
}

func replyTopic(serverName, nick, channel, topic string) ircwire.Message {
	return numeric(serverName, nick, rplTopic, channel, topic)
}

func replyNamReply(serverName, nick, channel, names string) ircwire.Message {
	return numeric(serverName, nick, rplNamReply, channel, names)
}

func replyEndOfNames(serverName, nick, channel string) ircwire.Message {
	return numeric(serverName, nick, rplEndOfNames, channel, "End of /NAMES list")
}

func replyListStart(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplListStart, "Channel", "Users Name")
}

func replyList(serverName, nick, channel string, count int, topic string) ircwire.Message {
	return numeric(serverName, nick, rplList, channel, fmt.Sprintf("%d", count), topic)
}

func replyListEnd(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplListEnd, "End of /LIST")
}

func replyInviting(serverName, nick, target, channel string) ircwire.Message {
	return numeric(serverName, nick, rplInviting, channel, target)
}

// --- OPER / server info ---

func replyYoureOper(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplYoureOper, "You are now an IRC operator")
}

func replyRehashing(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplRehashing, "Rehashing")
}

func replyVersion(serverName, nick, version string) ircwire.Message {
	return numeric(serverName, nick, rplVersion, version, serverName, "")
}

func replyTime(serverName, nick, timeStr string) ircwire.Message {
	return numeric(serverName, nick, rplTime, serverName, timeStr)
}

func replyAdminMe(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplAdminMe, serverName, fmt.Sprintf("Administrative info about %s", serverName))
}

func replyAdminLoc1(serverName, nick, loc string) ircwire.Message {
	return numeric(serverName, nick, rplAdminLoc1, loc)
}

func replyAdminLoc2(serverName, nick, loc string) ircwire.Message {
	return numeric(serverName, nick, rplAdminLoc2, loc)
}

func replyAdminMail(serverName, nick, mail string) ircwire.Message {
	return numeric(serverName, nick, rplAdminMail, mail)
}

func replyInfoLine(serverName, nick, line string) ircwire.Message {
	return numeric(serverName, nick, rplInfo, line)
}

func replyEndOfInfo(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplEndOfInfo, "End of /INFO list")
}

// --- away ---

func replyUnaway(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplUnaway, "You are no longer marked as being away")
}

func replyNowAway(serverName, nick string) ircwire.Message {
	return numeric(serverName, nick, rplNowAway, "You have been marked as being away")
}

func replyAway(serverName, nick, target, awayMsg string) ircwire.Message {
	return numeric(serverName, nick, rplAway, target, awayMsg)
}

// --- WHOIS skeleton (used only for the fixed not-implemented stub) ---

func replyEndOfWhois(serverName, nick, target string) ircwire.Message {
	return numeric(serverName, nick, rplEndOfWhois, target, "End of /WHOIS list")
}

// --- numeric errors ---

func errReply(serverName, nick, code string, params ...string) ircwire.Message {
	return numeric(serverName, nick, code, params...)
}

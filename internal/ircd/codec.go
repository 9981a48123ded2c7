package ircd

import "strings"

// maxTargets is the limit RFC 1459 implementations commonly place on
// PRIVMSG/NOTICE target lists; past it the sender gets
// ERR_TOOMANYTARGETS.
const maxTargets = 5

// splitTargets expands a comma-joined argument ("a,b,c") into individual
// targets, as used by JOIN/PART/NAMES/LIST/NOTICE/PRIVMSG.
//
// A blank argument splits to a single empty-string target rather than
// zero targets, so callers can still report errors against it.
func splitTargets(arg string) []string {
	if arg == "" {
		return []string{""}
	}
	return strings.Split(arg, ",")
}

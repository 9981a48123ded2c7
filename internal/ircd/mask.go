package ircd

// maskMatch reports whether mask (an IRC ban mask, e.g. "*!*@*.example.com")
// matches s (typically a "nick!user@host" prefix). '*' matches any run of
// characters and '?' matches exactly one.
//
// Matching is case-insensitive via the same Scandinavian fold used for
// nicknames, since masks are most often written against nicknames.
func maskMatch(mask, s string) bool {
	return globMatch(canonicalizeNick(mask), canonicalizeNick(s))
}

// globMatch implements '*'/'?' glob matching with a classic DP-free
// two-pointer backtracking scan.
func globMatch(pattern, s string) bool {
	var pIdx, sIdx int
	var starIdx, matchIdx int
	starIdx, matchIdx = -1, 0

	for sIdx < len(s) {
		if pIdx < len(pattern) && (pattern[pIdx] == '?' || pattern[pIdx] == s[sIdx]) {
			pIdx++
			sIdx++
			continue
		}

		if pIdx < len(pattern) && pattern[pIdx] == '*' {
			starIdx = pIdx
			matchIdx = sIdx
			pIdx++
			continue
		}

		if starIdx != -1 {
			pIdx = starIdx + 1
			matchIdx++
			sIdx = matchIdx
			continue
		}

		return false
	}

	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}

	return pIdx == len(pattern)
}

// banMaskMatches reports whether any mask in bans matches prefix.
func banMaskMatches(bans map[string]struct{}, prefix string) bool {
	for mask := range bans {
		if maskMatch(mask, prefix) {
			return true
		}
	}
	return false
}

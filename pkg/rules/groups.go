package rules

import "strconv"

// isGroupToken reports whether a computers-field token names a group rather
// than a computer id: "a token is a group name if it is not a valid
// non-negative integer literal".
func isGroupToken(token string) bool {
	n, err := strconv.ParseInt(token, 10, 64)
	return err != nil || n < 0
}

// expandComputerTokens expands a rule's raw computers field (ids and/or
// group names) into a deduplicated set of computer ids, following group
// membership transitively. The caller guarantees the group graph is
// acyclic; expandComputerTokens defends against cycles anyway
// with a visited set so a misbehaving upstream validator cannot hang this
// resolver.
func expandComputerTokens(tokens []string, groups map[string][]string) []string {
	seen := make(map[string]bool)
	var ordered []string

	var expand func(token string, visiting map[string]bool)
	expand = func(token string, visiting map[string]bool) {
		if !isGroupToken(token) {
			if !seen[token] {
				seen[token] = true
				ordered = append(ordered, token)
			}
			return
		}

		if visiting[token] {
			return
		}
		members, ok := groups[token]
		if !ok {
			return
		}
		visiting[token] = true
		for _, member := range members {
			expand(member, visiting)
		}
		delete(visiting, token)
	}

	for _, token := range tokens {
		expand(token, make(map[string]bool))
	}

	return ordered
}

// Package rules evaluates a step's or inspection's artifact rules against
// the materials and products a link recorded, following the queue-and-full-set
// algorithm of the original in-toto reference implementation's
// verify_item_rules, with one deliberate divergence: a nonempty queue at the
// end of a rule list is only a failure when the list ends with DISALLOW *.
package rules

import "strings"

// matchGlob reports whether path (already forward-slash normalized) matches
// pattern. Matching is anchored to the full path: pattern must consume all of
// path, not merely a leading segment.
//
// Wildcards:
//
//	*   matches zero or more characters, but never "/"
//	**  matches zero or more characters, including "/"
//	?   matches exactly one character, but never "/"
//
// Any other rune matches itself literally.
func matchGlob(pattern, path string) bool {
	return matchGlobRunes([]rune(pattern), []rune(path))
}

func matchGlobRunes(pattern, path []rune) bool {
	for len(pattern) > 0 {
		switch {
		case len(pattern) >= 2 && pattern[0] == '*' && pattern[1] == '*':
			rest := pattern[2:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(path); i++ {
				if matchGlobRunes(rest, path[i:]) {
					return true
				}
			}
			return false

		case pattern[0] == '*':
			rest := pattern[1:]
			// '*' may match zero or more non-'/' runes; try longest-to-shortest
			// so a trailing literal suffix still gets a chance to anchor.
			end := 0
			for end < len(path) && path[end] != '/' {
				end++
			}
			for i := end; i >= 0; i-- {
				if matchGlobRunes(rest, path[i:]) {
					return true
				}
			}
			return false

		case pattern[0] == '?':
			if len(path) == 0 || path[0] == '/' {
				return false
			}
			pattern, path = pattern[1:], path[1:]

		default:
			if len(path) == 0 || pattern[0] != path[0] {
				return false
			}
			pattern, path = pattern[1:], path[1:]
		}
	}
	return len(path) == 0
}

// normalizePath converts a filesystem path to the forward-slash form every
// glob pattern and link artifact key is compared in.
func normalizePath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

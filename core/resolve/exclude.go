package resolve

import "strings"

// Excluded reports whether normalizedPath (already '/'-normalized,
// relative to the base path) is excluded by patterns, applying them in
// order so a later "!pattern" can re-include a path an earlier pattern
// excluded — standard gitignore cascading semantics. isDir tells
// directory-only patterns (trailing "/") whether to consider this path.
func Excluded(patterns []string, normalizedPath string, isDir bool) bool {
	excluded := false
	for _, pattern := range patterns {
		matched, negate, dirOnly := matchExcludePattern(pattern, normalizedPath)
		if !matched {
			continue
		}
		if dirOnly && !isDir {
			continue
		}
		excluded = !negate
	}
	return excluded
}

// matchExcludePattern reports whether pattern matches path, along with
// whether the pattern was a negation ("!pattern") and whether it was
// directory-only ("pattern/").
func matchExcludePattern(pattern, path string) (matched, negate, dirOnly bool) {
	if strings.HasPrefix(pattern, "!") {
		negate = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	pathSegments := splitSegments(path)

	if strings.HasPrefix(pattern, "**/") {
		patternSegments := splitSegments(pattern[len("**/"):])
		return matchesAnySuffixWindow(patternSegments, pathSegments), negate, dirOnly
	}

	patternSegments := splitSegments(pattern)
	return matchSegments(patternSegments, pathSegments), negate, dirOnly
}

func splitSegments(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// matchesAnySuffixWindow reports whether patternSegments matches a
// contiguous run of pathSegments starting at any offset, implementing
// "**/" as "this pattern may start at any ancestor directory".
func matchesAnySuffixWindow(patternSegments, pathSegments []string) bool {
	if len(patternSegments) > len(pathSegments) {
		return false
	}
	for start := 0; start <= len(pathSegments)-len(patternSegments); start++ {
		if matchSegments(patternSegments, pathSegments[start:start+len(patternSegments)]) {
			return true
		}
	}
	return false
}

func matchSegments(patternSegments, pathSegments []string) bool {
	if len(patternSegments) != len(pathSegments) {
		return false
	}
	for i, p := range patternSegments {
		if !matchSegmentGlob(p, pathSegments[i]) {
			return false
		}
	}
	return true
}

// matchSegmentGlob matches one path segment (no '/') against one
// pattern segment using '*' (run of any chars) and '?' (one char);
// neither wildcard crosses a segment boundary because segments are
// already split on '/'.
func matchSegmentGlob(pattern, segment string) bool {
	return globMatchRunes([]rune(pattern), []rune(segment))
}

func globMatchRunes(pattern, s []rune) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if globMatchRunes(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globMatchRunes(pattern[1:], s[1:])
	}
}

package resolve

import "testing"

func TestExcludedSimplePattern(t *testing.T) {
	if !Excluded([]string{"*.log"}, "debug.log", false) {
		t.Fatal("expected debug.log to be excluded")
	}
	if Excluded([]string{"*.log"}, "debug.txt", false) {
		t.Fatal("expected debug.txt to not be excluded")
	}
}

func TestExcludedStarDoesNotCrossSeparator(t *testing.T) {
	if Excluded([]string{"*.log"}, "nested/debug.log", false) {
		t.Fatal("expected anchored pattern to not match nested path without **/")
	}
}

func TestExcludedAnyAncestorPrefix(t *testing.T) {
	if !Excluded([]string{"**/node_modules"}, "a/b/node_modules", true) {
		t.Fatal("expected **/ prefix to match at any depth")
	}
	if !Excluded([]string{"**/node_modules"}, "node_modules", true) {
		t.Fatal("expected **/ prefix to match at depth zero")
	}
}

func TestExcludedDirectoryOnlyPattern(t *testing.T) {
	if Excluded([]string{"build/"}, "build", false) {
		t.Fatal("expected directory-only pattern to not match a file")
	}
	if !Excluded([]string{"build/"}, "build", true) {
		t.Fatal("expected directory-only pattern to match a directory")
	}
}

func TestExcludedNegationReincludes(t *testing.T) {
	patterns := []string{"*.log", "!keep.log"}
	if Excluded(patterns, "keep.log", false) {
		t.Fatal("expected negation pattern to re-include keep.log")
	}
	if !Excluded(patterns, "other.log", false) {
		t.Fatal("expected other.log to remain excluded")
	}
}

func TestExcludedQuestionMarkMatchesOneChar(t *testing.T) {
	if !Excluded([]string{"file?.txt"}, "file1.txt", false) {
		t.Fatal("expected ? to match a single char")
	}
	if Excluded([]string{"file?.txt"}, "file12.txt", false) {
		t.Fatal("expected ? to not match two chars")
	}
}

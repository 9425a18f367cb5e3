package rules

import "testing"

func TestMatchGlobLiteral(t *testing.T) {
	if !matchGlob("foo.py", "foo.py") {
		t.Fatal("expected literal match")
	}
	if matchGlob("foo.py", "bar.py") {
		t.Fatal("expected no match")
	}
}

func TestMatchGlobStarStopsAtSlash(t *testing.T) {
	if !matchGlob("*.py", "foo.py") {
		t.Fatal("expected *.py to match foo.py")
	}
	if matchGlob("*.py", "sub/foo.py") {
		t.Fatal("expected *.py to not cross a slash")
	}
}

func TestMatchGlobDoubleStarCrossesSlash(t *testing.T) {
	if !matchGlob("**/foo.py", "a/b/foo.py") {
		t.Fatal("expected **/foo.py to cross multiple slashes")
	}
	if !matchGlob("**/foo.py", "foo.py") {
		t.Fatal("expected ** to also match zero path segments")
	}
	if !matchGlob("**", "anything/at/all.txt") {
		t.Fatal("expected bare ** to match everything")
	}
}

func TestMatchGlobQuestionMarkMatchesOneNonSlashRune(t *testing.T) {
	if !matchGlob("fo?.py", "foo.py") {
		t.Fatal("expected ? to match a single rune")
	}
	if matchGlob("fo?.py", "fo/.py") {
		t.Fatal("expected ? to never match a slash")
	}
}

func TestMatchGlobAnchoredToFullPath(t *testing.T) {
	if matchGlob("foo.py", "dir/foo.py") {
		t.Fatal("expected pattern without ** to not match a path with a directory prefix")
	}
}

func TestMatchGlobDisallowStarMatchesEmptyAndBareNames(t *testing.T) {
	if !matchGlob("*", "") {
		t.Fatal("expected * to match the empty string")
	}
	if !matchGlob("*", "anything") {
		t.Fatal("expected * to match a bare filename")
	}
}

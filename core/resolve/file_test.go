package resolve

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileResolverHashesNestedDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "top.txt"), []byte("top"), 0o600); err != nil {
		t.Fatalf("write top.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("nested"), 0o600); err != nil {
		t.Fatalf("write nested.txt: %v", err)
	}

	opts := DefaultOptions()
	opts.BaseDir = dir
	results, err := (fileResolver{}).Resolve(".", opts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := results["top.txt"]; !ok {
		t.Fatalf("expected top.txt in results: %+v", results)
	}
	if _, ok := results["sub/nested.txt"]; !ok {
		t.Fatalf("expected sub/nested.txt in results: %+v", results)
	}
}

func TestFileResolverExcludesMatchingEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("keep"), 0o600); err != nil {
		t.Fatalf("write keep.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.log"), []byte("skip"), 0o600); err != nil {
		t.Fatalf("write skip.log: %v", err)
	}

	opts := DefaultOptions()
	opts.BaseDir = dir
	opts.Excludes = []string{"*.log"}
	results, err := (fileResolver{}).Resolve(".", opts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := results["keep.txt"]; !ok {
		t.Fatalf("expected keep.txt in results: %+v", results)
	}
	if _, ok := results["skip.log"]; ok {
		t.Fatalf("expected skip.log to be excluded: %+v", results)
	}
}

func TestFileResolverDetectsSymlinkLoop(t *testing.T) {
	dir := t.TempDir()
	loopDir := filepath.Join(dir, "loop")
	if err := os.MkdirAll(loopDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	linkPath := filepath.Join(loopDir, "self")
	if err := os.Symlink(loopDir, linkPath); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	opts := DefaultOptions()
	opts.BaseDir = dir
	if _, err := (fileResolver{}).Resolve("loop", opts); err == nil {
		t.Fatal("expected symlink loop to be detected")
	}
}

func TestFileResolverFollowsNonLoopingSymlink(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	if err := os.MkdirAll(realDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(realDir, "f.txt"), []byte("data"), 0o600); err != nil {
		t.Fatalf("write f.txt: %v", err)
	}
	linkPath := filepath.Join(dir, "link")
	if err := os.Symlink(realDir, linkPath); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	opts := DefaultOptions()
	opts.BaseDir = dir
	results, err := (fileResolver{}).Resolve("link", opts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one resolved file, got %+v", results)
	}
}

func TestResolveAbsHandlesAbsoluteAndRelative(t *testing.T) {
	if got := resolveAbs("/abs/path", "/base"); got != "/abs/path" {
		t.Fatalf("got %q, want /abs/path", got)
	}
	if got := resolveAbs("rel/path", "/base"); got != filepath.Join("/base", "rel/path") {
		t.Fatalf("got %q", got)
	}
	if got := resolveAbs("rel/path", ""); got != "rel/path" {
		t.Fatalf("got %q, want rel/path", got)
	}
}

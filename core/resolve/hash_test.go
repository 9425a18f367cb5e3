package resolve

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestDigestFileSHA256(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	digests, err := digestFile(path, []string{"sha256"}, false)
	if err != nil {
		t.Fatalf("digest file: %v", err)
	}
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if digests["sha256"] != want {
		t.Fatalf("got %s, want %s", digests["sha256"], want)
	}
}

func TestDigestFileMultiAlgorithm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	digests, err := digestFile(path, []string{"sha256", "sha512"}, false)
	if err != nil {
		t.Fatalf("digest file: %v", err)
	}
	if digests["sha256"] == "" || digests["sha512"] == "" {
		t.Fatalf("expected both digests to be populated: %+v", digests)
	}
}

func TestDigestFileNormalizesCRLF(t *testing.T) {
	dir := t.TempDir()
	crlfPath := filepath.Join(dir, "crlf.txt")
	lfPath := filepath.Join(dir, "lf.txt")
	if err := os.WriteFile(crlfPath, []byte("line1\r\nline2\r\n"), 0o600); err != nil {
		t.Fatalf("write crlf file: %v", err)
	}
	if err := os.WriteFile(lfPath, []byte("line1\nline2\n"), 0o600); err != nil {
		t.Fatalf("write lf file: %v", err)
	}
	crlfDigest, err := digestFile(crlfPath, []string{"sha256"}, true)
	if err != nil {
		t.Fatalf("digest crlf: %v", err)
	}
	lfDigest, err := digestFile(lfPath, []string{"sha256"}, false)
	if err != nil {
		t.Fatalf("digest lf: %v", err)
	}
	if crlfDigest["sha256"] != lfDigest["sha256"] {
		t.Fatalf("expected normalized CRLF digest to equal LF digest: %s vs %s", crlfDigest["sha256"], lfDigest["sha256"])
	}
}

func TestCRLFStripperHandlesTrailingLoneCR(t *testing.T) {
	s := &crlfStripper{r: bytesReaderOf("abc\r")}
	out, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if string(out) != "abc\r" {
		t.Fatalf("got %q, want %q", out, "abc\r")
	}
}

func bytesReaderOf(s string) io.Reader {
	return &staticReader{data: []byte(s)}
}

type staticReader struct {
	data []byte
	off  int
}

func (s *staticReader) Read(p []byte) (int, error) {
	if s.off >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.off:])
	s.off += n
	if s.off >= len(s.data) {
		return n, io.EOF
	}
	return n, nil
}

func TestDigestAllConcurrent(t *testing.T) {
	dir := t.TempDir()
	var jobs []digestJob
	for i := 0; i < 8; i++ {
		name := filepath.Join(dir, string(rune('a'+i))+".txt")
		if err := os.WriteFile(name, []byte{byte('a' + i)}, 0o600); err != nil {
			t.Fatalf("write file %d: %v", i, err)
		}
		jobs = append(jobs, digestJob{relPath: string(rune('a' + i)), absPath: name})
	}
	results, err := digestAll(jobs, []string{"sha256"}, false)
	if err != nil {
		t.Fatalf("digest all: %v", err)
	}
	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(results))
	}
}

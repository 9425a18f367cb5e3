package runner

import (
	"context"
	"testing"
	"time"
)

func TestExecRunnerCapturesStdoutAndExitCode(t *testing.T) {
	result, err := ExecRunner{}.Run(context.Background(), RunOptions{
		Argv: []string{"sh", "-c", "echo hello; exit 3"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("got exit code %d, want 3", result.ExitCode)
	}
	if string(result.Stdout) != "hello\n" {
		t.Fatalf("got stdout %q", result.Stdout)
	}
}

func TestExecRunnerCapturesStderr(t *testing.T) {
	result, err := ExecRunner{}.Run(context.Background(), RunOptions{
		Argv: []string{"sh", "-c", "echo oops 1>&2"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if string(result.Stderr) != "oops\n" {
		t.Fatalf("got stderr %q", result.Stderr)
	}
}

func TestExecRunnerReportsStartupError(t *testing.T) {
	if _, err := (ExecRunner{}).Run(context.Background(), RunOptions{
		Argv: []string{"/nonexistent-binary-toto-test"},
	}); err == nil {
		t.Fatal("expected startup error for nonexistent binary")
	}
}

func TestExecRunnerRejectsEmptyArgv(t *testing.T) {
	if _, err := (ExecRunner{}).Run(context.Background(), RunOptions{}); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestExecRunnerTimesOut(t *testing.T) {
	result, err := ExecRunner{}.Run(context.Background(), RunOptions{
		Argv:    []string{"sh", "-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.TimedOut {
		t.Fatal("expected TimedOut to be true")
	}
}

func TestCappedBufferTruncatesWithoutShortWrite(t *testing.T) {
	buf := newCappedBuffer(4)
	n, err := buf.Write([]byte("hello world"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != len("hello world") {
		t.Fatalf("got n=%d, want full length reported to avoid io.Copy short-write errors", n)
	}
	if !buf.truncated {
		t.Fatal("expected truncated to be true")
	}
	if len(buf.Bytes()) != 4 {
		t.Fatalf("got %d buffered bytes, want 4", len(buf.Bytes()))
	}
}

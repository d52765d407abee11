package executor

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLocalExecuteCapturesOutput(t *testing.T) {
	exec := NewLocal(slog.New(slog.DiscardHandler))

	var stdout, stderr bytes.Buffer
	exitCode, err := exec.Execute(context.Background(), &stdout, &stderr, "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("exit code %d, want 0", exitCode)
	}
	if got := strings.TrimSpace(stdout.String()); got != "out" {
		t.Fatalf("stdout %q", got)
	}
	if got := strings.TrimSpace(stderr.String()); got != "err" {
		t.Fatalf("stderr %q", got)
	}
}

func TestLocalExecuteReportsExitCode(t *testing.T) {
	exec := NewLocal(slog.New(slog.DiscardHandler))

	var stdout, stderr bytes.Buffer
	exitCode, err := exec.Execute(context.Background(), &stdout, &stderr, "sh", "-c", "exit 3")
	if err == nil {
		t.Fatal("expected an error for a nonzero exit")
	}
	if exitCode != 3 {
		t.Fatalf("exit code %d, want 3", exitCode)
	}
}

func TestRunAndCapture(t *testing.T) {
	exec := NewLocal(slog.New(slog.DiscardHandler))

	result, err := RunAndCapture(context.Background(), exec, "sh", "-c", "echo captured")
	if err != nil {
		t.Fatalf("run and capture: %v", err)
	}
	if got := strings.TrimSpace(result.Stdout); got != "captured" {
		t.Fatalf("stdout %q", got)
	}
}

package readiness

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestWaitForMarkerEventuallyReady(t *testing.T) {
	calls := 0
	source := func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "[Server] starting up\n", nil
		}
		return "[Server] starting up\n[Server] ready for connections\n", nil
	}

	poller := NewPoller(time.Millisecond, time.Second, discardLogger())
	if err := poller.WaitForMarker(context.Background(), source, "ready for connections"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls < 3 {
		t.Fatalf("marker reported before source produced it (%d calls)", calls)
	}
}

func TestWaitForMarkerTimesOut(t *testing.T) {
	source := func(ctx context.Context) (string, error) {
		return "still initializing\n", nil
	}

	poller := NewPoller(time.Millisecond, 30*time.Millisecond, discardLogger())
	err := poller.WaitForMarker(context.Background(), source, "ready for connections")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "still initializing") {
		t.Fatalf("error does not carry last log output: %v", err)
	}
}

func TestWaitForMarkerToleratesSourceErrors(t *testing.T) {
	calls := 0
	source := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("no such container")
		}
		return "ready for connections", nil
	}

	poller := NewPoller(time.Millisecond, time.Second, discardLogger())
	if err := poller.WaitForMarker(context.Background(), source, "ready for connections"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForMarkerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := func(ctx context.Context) (string, error) {
		return "not ready", nil
	}

	poller := NewPoller(10*time.Millisecond, time.Minute, discardLogger())
	start := time.Now()
	err := poller.WaitForMarker(ctx, source, "ready")
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation was not observed promptly")
	}
}

func TestTail(t *testing.T) {
	out := tail("a\nb\nc\nd\n", 2)
	if out != "c\nd" {
		t.Fatalf("tail: %q", out)
	}
	if got := tail("only\n", 5); got != "only" {
		t.Fatalf("tail short input: %q", got)
	}
}

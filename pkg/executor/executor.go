package executor

import (
	"context"
	"io"
)

// Executor runs a command and streams its output into the given writers.
// Implementations exist for the local shell and for remote hosts over SSH.
type Executor interface {
	Execute(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (exitCode int, err error)
	Name() string
}

// Result captures everything a finished command produced.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Error    error
}

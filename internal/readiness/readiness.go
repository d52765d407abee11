// Package readiness waits for a service to announce itself in its log
// stream. The poll carries a deadline and a backoff cap so a service that
// never comes up fails the run instead of hanging it.
package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LogSource returns the current log output of the polled service.
type LogSource func(ctx context.Context) (string, error)

// Poller repeatedly samples a log source until a marker appears.
type Poller struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
	logger      *slog.Logger
}

func NewPoller(interval, timeout time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		Interval:    interval,
		MaxInterval: 10 * time.Second,
		Timeout:     timeout,
		logger:      logger.With(slog.String("component", "readiness")),
	}
}

// WaitForMarker polls the source until its output contains marker. It fails
// when the deadline passes or the context is cancelled, reporting the tail
// of the last observed output.
func (p *Poller) WaitForMarker(ctx context.Context, source LogSource, marker string) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	interval := p.Interval
	var lastOutput string
	attempt := 0

	for {
		output, err := source(ctx)
		if err != nil {
			// The container may not have produced logs yet; keep
			// polling until the deadline decides.
			p.logger.Debug("log source not readable yet",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		} else {
			lastOutput = output
			if strings.Contains(output, marker) {
				p.logger.Debug("readiness marker observed",
					slog.Int("attempt", attempt),
					slog.String("marker", marker),
				)
				return nil
			}
		}

		attempt++

		select {
		case <-ctx.Done():
			return fmt.Errorf("marker %q not observed within %s: %w\nlast log output:\n%s",
				marker, p.Timeout, ctx.Err(), tail(lastOutput, 20))
		case <-time.After(interval):
		}

		if interval < p.MaxInterval {
			interval *= 2
			if interval > p.MaxInterval {
				interval = p.MaxInterval
			}
		}
	}
}

func tail(output string, lines int) string {
	all := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	return strings.Join(all, "\n")
}

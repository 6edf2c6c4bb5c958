// Package loop runs the single-threaded control cycle: one autonomous
// relay tick, then at most one dispatched command per iteration.
package loop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

type Controller interface {
	Tick()
}

type Dispatcher interface {
	Dispatch(line string) string
}

type Loop struct {
	ctrl     Controller
	disp     Dispatcher
	in       io.Reader
	out      io.Writer
	interval time.Duration
	lines    chan string
}

func New(ctrl Controller, disp Dispatcher, in io.Reader, out io.Writer, interval time.Duration) *Loop {
	return &Loop{
		ctrl:     ctrl,
		disp:     disp,
		in:       in,
		out:      out,
		interval: interval,
		lines:    make(chan string, 8),
	}
}

// Run blocks until ctx is canceled. All ControlState mutation happens
// on this goroutine; the reader goroutine only ferries lines.
func (l *Loop) Run(ctx context.Context) {
	go l.readLines(ctx)

	log.Info().Dur("interval", l.interval).Msg("Starting control loop")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	pending := l.lines
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Control loop stopped")
			return
		case <-ticker.C:
		}

		// Autonomous control runs first: a command that changes mode
		// or thresholds takes effect on the next tick, not this one.
		l.ctrl.Tick()

		select {
		case line, ok := <-pending:
			if !ok {
				// Input closed; keep ticking, stop polling for lines.
				pending = nil
				continue
			}
			if reply := l.disp.Dispatch(line); reply != "" {
				fmt.Fprintln(l.out, reply)
			}
		default:
		}
	}
}

func (l *Loop) readLines(ctx context.Context) {
	defer close(l.lines)

	scanner := bufio.NewScanner(l.in)
	for scanner.Scan() {
		select {
		case l.lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Command input failed")
		return
	}
	log.Info().Msg("Command input closed")
}

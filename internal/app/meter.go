// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"time"

	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/shell"
	"github.com/relabs-tech/roast_meter/internal/timeutil"
)

// DefaultPollInterval is how often the run loop checks whether a tick is
// due. It is much shorter than the tick period so commands stay
// responsive.
const DefaultPollInterval = 10 * time.Millisecond

type command struct {
	line  string
	reply chan []string
}

// Meter owns the run loop. Engine ticks and every shell command execute on
// the loop goroutine, so the engine and session never see concurrent
// callers.
type Meter struct {
	engine   *engine.Engine
	shell    *shell.Shell
	clock    timeutil.Clock
	poll     time.Duration
	commands chan command
}

// NewMeter returns a meter; call Run to start it.
func NewMeter(e *engine.Engine, sh *shell.Shell, clock timeutil.Clock) *Meter {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Meter{
		engine:   e,
		shell:    sh,
		clock:    clock,
		poll:     DefaultPollInterval,
		commands: make(chan command),
	}
}

// Run polls the engine and serves commands until ctx is cancelled. An
// in-flight sample always completes before Run returns.
func (m *Meter) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-m.commands:
			cmd.reply <- m.shell.Lines(cmd.line)
		case <-ticker.C:
			m.engine.Poll(m.clock.Now())
		}
	}
}

// Execute hands line to the run loop and waits for its reply.
func (m *Meter) Execute(ctx context.Context, line string) ([]string, error) {
	cmd := command{line: line, reply: make(chan []string, 1)}
	select {
	case m.commands <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case lines := <-cmd.reply:
		return lines, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

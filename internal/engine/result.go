// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package engine

import (
	"time"

	"github.com/relabs-tech/roast_meter/internal/sample"
)

// State is the per-tick sample state.
type State int

const (
	NoSample State = iota
	SamplePresent
)

func (s State) String() string {
	switch s {
	case NoSample:
		return "NoSample"
	case SamplePresent:
		return "SamplePresent"
	}
	return "unknown"
}

// Mode selects how a measurement becomes a roast index.
type Mode int

const (
	ModeRatio Mode = iota // red/IR ratio through the calibration curve
	ModeIR                // legacy IR-only linear model
)

func (m Mode) String() string {
	if m == ModeIR {
		return "IR"
	}
	return "RATIO"
}

// Result is the outcome of one tick. Measurement is only meaningful when
// State is SamplePresent; Err explains an invalid sample or a failed read.
type Result struct {
	State       State
	Mode        Mode
	Time        time.Time
	Measurement sample.Measurement
	Err         error
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package engine

import "github.com/relabs-tech/roast_meter/internal/sample"

// Reporter receives the outcome of every tick.
type Reporter interface {
	// NoSample is called when nothing is under the sensor or the sample
	// could not be measured.
	NoSample()
	// RoastIndex is called with a valid measurement whose RoastIndex is set.
	RoastIndex(m sample.Measurement, mode Mode)
}

// Reporters fans each call out to every element in order.
type Reporters []Reporter

func (rs Reporters) NoSample() {
	for _, r := range rs {
		r.NoSample()
	}
}

func (rs Reporters) RoastIndex(m sample.Measurement, mode Mode) {
	for _, r := range rs {
		r.RoastIndex(m, mode)
	}
}

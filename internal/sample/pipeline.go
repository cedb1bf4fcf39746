// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sample turns raw red/IR photon counts into validated, averaged
// measurements.
package sample

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/roast_meter/internal/timeutil"
)

// ErrInvalidMeasurement is returned when too few raw readings pass the
// plausibility window or the averaged IR channel is zero.
var ErrInvalidMeasurement = errors.New("invalid measurement")

// ChannelReader is the sensor driver: one raw red/IR pair per call.
type ChannelReader interface {
	ReadChannels() (red, ir uint32, err error)
}

// Options configures the averaging pipeline.
type Options struct {
	Samples int           // raw pairs per measurement (K)
	Delay   time.Duration // pause after each raw read
	Min     uint32        // plausibility window, inclusive
	Max     uint32
}

// DefaultOptions returns the reference pipeline parameters.
func DefaultOptions() Options {
	return Options{
		Samples: 10,
		Delay:   10 * time.Millisecond,
		Min:     1000,
		Max:     500000,
	}
}

// Pipeline samples a ChannelReader K times and averages the plausible pairs.
type Pipeline struct {
	sensor ChannelReader
	opts   Options
	clock  timeutil.Clock
}

// NewPipeline creates a pipeline reading from sensor. A nil clock uses the
// wall clock.
func NewPipeline(sensor ChannelReader, opts Options, clock timeutil.Clock) *Pipeline {
	if opts.Samples <= 0 {
		opts.Samples = DefaultOptions().Samples
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Pipeline{sensor: sensor, opts: opts, clock: clock}
}

// Options returns the pipeline parameters.
func (p *Pipeline) Options() Options {
	return p.opts
}

// ReadIR performs a single raw read and returns only the IR channel. It is
// the cheap presence check; no validation or averaging happens here.
func (p *Pipeline) ReadIR() (uint32, error) {
	_, ir, err := p.sensor.ReadChannels()
	if err != nil {
		return 0, fmt.Errorf("read IR: %w", err)
	}
	return ir, nil
}

// ReadRaw performs a single raw read of both channels.
func (p *Pipeline) ReadRaw() (red, ir uint32, err error) {
	return p.sensor.ReadChannels()
}

func (p *Pipeline) inWindow(v uint32) bool {
	return v >= p.opts.Min && v <= p.opts.Max
}

// Sample takes K raw pairs, discards any pair with a channel outside the
// plausibility window, and averages the rest. If fewer than K/2 pairs
// survive, no average is attempted and the returned measurement is invalid.
//
// This blocks for K * Delay: the pause between reads decorrelates optical
// and electrical noise and is the one deliberate stall in the measurement
// path.
func (p *Pipeline) Sample() (Measurement, error) {
	reds := make([]float64, 0, p.opts.Samples)
	irs := make([]float64, 0, p.opts.Samples)

	for i := 0; i < p.opts.Samples; i++ {
		red, ir, err := p.sensor.ReadChannels()
		if err == nil && p.inWindow(red) && p.inWindow(ir) {
			reds = append(reds, float64(red))
			irs = append(irs, float64(ir))
		}
		p.clock.Sleep(p.opts.Delay)
	}

	m := Measurement{Readings: len(reds)}
	if len(reds) < p.opts.Samples/2 || len(reds) == 0 {
		return m, fmt.Errorf("%w: only %d of %d readings in range", ErrInvalidMeasurement, len(reds), p.opts.Samples)
	}

	m.Red = uint32(stat.Mean(reds, nil))
	m.IR = uint32(stat.Mean(irs, nil))
	if m.IR == 0 {
		return m, fmt.Errorf("%w: zero IR average", ErrInvalidMeasurement)
	}
	m.RedStdDev = stat.PopStdDev(reds, nil)
	m.IRStdDev = stat.PopStdDev(irs, nil)
	m.Ratio = float64(m.Red) / float64(m.IR)
	m.Valid = true
	return m, nil
}

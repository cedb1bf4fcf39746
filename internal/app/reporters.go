// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/sample"
	"github.com/relabs-tech/roast_meter/internal/store"
)

// SerialReporter prints each valid measurement as a block of lines. Empty
// ticks print nothing.
type SerialReporter struct {
	W io.Writer
}

func (r SerialReporter) NoSample() {}

func (r SerialReporter) RoastIndex(m sample.Measurement, mode engine.Mode) {
	fmt.Fprintln(r.W, "--- Measurement ---")
	fmt.Fprintf(r.W, "Mode: %s\n", mode)
	fmt.Fprintf(r.W, "Red: %d\n", m.Red)
	fmt.Fprintf(r.W, "IR: %d\n", m.IR)
	fmt.Fprintf(r.W, "Ratio: %.4f\n", m.Ratio)
	fmt.Fprintf(r.W, "Roast: %d\n", m.RoastIndex)
	fmt.Fprintln(r.W, "-------------------")
}

// MeasurementAppender is the write side of the measurement log.
type MeasurementAppender interface {
	AppendMeasurement(e store.LogEntry) error
}

// LogReporter appends every valid measurement to the measurement log.
type LogReporter struct {
	log           MeasurementAppender
	now           func() time.Time
	ledBrightness atomic.Int32
}

// NewLogReporter returns a reporter that stamps entries with brightness
// until SetLEDBrightness changes it.
func NewLogReporter(l MeasurementAppender, brightness int) *LogReporter {
	r := &LogReporter{log: l, now: time.Now}
	r.ledBrightness.Store(int32(brightness))
	return r
}

// SetLEDBrightness updates the brightness recorded with later entries.
func (r *LogReporter) SetLEDBrightness(b uint8) {
	r.ledBrightness.Store(int32(b))
}

func (r *LogReporter) NoSample() {}

func (r *LogReporter) RoastIndex(m sample.Measurement, mode engine.Mode) {
	err := r.log.AppendMeasurement(store.LogEntry{
		Time:          r.now(),
		Red:           m.Red,
		IR:            m.IR,
		Ratio:         m.Ratio,
		RoastIndex:    m.RoastIndex,
		Mode:          mode.String(),
		LEDBrightness: int(r.ledBrightness.Load()),
	})
	if err != nil {
		log.Printf("meter: WARNING: measurement log: %v", err)
	}
}

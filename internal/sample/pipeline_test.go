// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sample

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/roast_meter/internal/timeutil"
)

type pair struct {
	red, ir uint32
	err     error
}

// scriptedSensor replays a fixed sequence of reads, repeating the last one.
type scriptedSensor struct {
	reads []pair
	calls int
}

func (s *scriptedSensor) ReadChannels() (uint32, uint32, error) {
	i := s.calls
	if i >= len(s.reads) {
		i = len(s.reads) - 1
	}
	s.calls++
	r := s.reads[i]
	return r.red, r.ir, r.err
}

func newTestPipeline(reads []pair) (*Pipeline, *scriptedSensor, *timeutil.MockClock) {
	sensor := &scriptedSensor{reads: reads}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	return NewPipeline(sensor, DefaultOptions(), clock), sensor, clock
}

func TestSample_UsesOnlyValidPairs(t *testing.T) {
	reads := []pair{
		{20000, 40000, nil},
		{999, 40000, nil}, // red below window
		{22000, 42000, nil},
		{20000, 600000, nil}, // ir above window
		{18000, 38000, nil},
		{0, 0, nil},
		{20000, 40000, nil},
		{20000, 40000, errors.New("i2c nack")},
		{21000, 41000, nil},
		{19000, 39000, nil},
	}
	p, sensor, clock := newTestPipeline(reads)

	m, err := p.Sample()
	require.NoError(t, err)

	assert.True(t, m.Valid)
	assert.Equal(t, 6, m.Readings)
	assert.Equal(t, uint32(20000), m.Red)
	assert.Equal(t, uint32(40000), m.IR)
	assert.InDelta(t, 0.5, m.Ratio, 1e-12)
	assert.Equal(t, 10, sensor.calls)
	assert.Len(t, clock.Sleeps(), 10)
}

func TestSample_TooFewValidPairs(t *testing.T) {
	reads := []pair{
		{20000, 40000, nil},
		{20000, 40000, nil},
		{20000, 40000, nil},
		{500, 40000, nil},
	}
	p, _, _ := newTestPipeline(reads)

	m, err := p.Sample()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMeasurement)
	assert.False(t, m.Valid)
	assert.Equal(t, 3, m.Readings)
	assert.Zero(t, m.Red)
	assert.Zero(t, m.Ratio)
}

func TestSample_HalfIsEnough(t *testing.T) {
	reads := []pair{
		{30000, 60000, nil},
		{30000, 60000, nil},
		{30000, 60000, nil},
		{30000, 60000, nil},
		{30000, 60000, nil},
		{1, 1, nil},
	}
	p, _, _ := newTestPipeline(reads)

	m, err := p.Sample()
	require.NoError(t, err)
	assert.Equal(t, 5, m.Readings)
	assert.InDelta(t, 0.5, m.Ratio, 1e-12)
}

func TestSample_WindowIsInclusive(t *testing.T) {
	p, _, _ := newTestPipeline([]pair{{1000, 500000, nil}})

	m, err := p.Sample()
	require.NoError(t, err)
	assert.Equal(t, 10, m.Readings)
	assert.Equal(t, uint32(1000), m.Red)
	assert.Equal(t, uint32(500000), m.IR)
}

func TestSample_ZeroIRGuard(t *testing.T) {
	sensor := &scriptedSensor{reads: []pair{{5, 0, nil}}}
	opts := DefaultOptions()
	opts.Min = 0
	p := NewPipeline(sensor, opts, timeutil.NewMockClock(time.Unix(0, 0)))

	m, err := p.Sample()
	assert.ErrorIs(t, err, ErrInvalidMeasurement)
	assert.False(t, m.Valid)
}

func TestSample_AveragesTruncate(t *testing.T) {
	p, _, _ := newTestPipeline([]pair{
		{20001, 40000, nil},
		{20000, 40001, nil},
	})

	m, err := p.Sample()
	require.NoError(t, err)
	// mean red = 20000.1 (9 x 20000 + 20001 over 10)
	assert.Equal(t, uint32(20000), m.Red)
	assert.Equal(t, uint32(40000), m.IR)
	assert.Greater(t, m.RedStdDev, 0.0)
}

func TestReadIR(t *testing.T) {
	p, sensor, clock := newTestPipeline([]pair{{100, 30050, nil}})

	ir, err := p.ReadIR()
	require.NoError(t, err)
	assert.Equal(t, uint32(30050), ir)
	assert.Equal(t, 1, sensor.calls)
	assert.Empty(t, clock.Sleeps())
}

func TestReadIR_Error(t *testing.T) {
	p, _, _ := newTestPipeline([]pair{{0, 0, errors.New("bus closed")}})
	_, err := p.ReadIR()
	assert.Error(t, err)
}

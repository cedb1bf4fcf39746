// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/sample"
	"github.com/relabs-tech/roast_meter/internal/shell"
	"github.com/relabs-tech/roast_meter/internal/store"
	"github.com/relabs-tech/roast_meter/internal/timeutil"
)

type testSensor struct {
	mu         sync.Mutex
	red, ir    uint32
	brightness uint8
}

func (s *testSensor) ReadChannels() (uint32, uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.red, s.ir, nil
}

func (s *testSensor) SetLEDBrightness(b uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightness = b
	return nil
}

func (s *testSensor) ReadRegister(reg byte) (byte, error) { return reg, nil }

func (s *testSensor) Close() error { return nil }

type rig struct {
	sensor *testSensor
	store  *store.Store
	engine *engine.Engine
	meter  *Meter
	log    *LogReporter
}

// newRig wires a real engine, shell and store around a fake sensor reading
// a medium roast (ratio 0.5). The run loop is started unless run is false.
func newRig(t *testing.T, run bool) *rig {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "meter.db"), store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r := &rig{sensor: &testSensor{red: 20000, ir: 40000}, store: st}
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	p := sample.NewPipeline(r.sensor, sample.DefaultOptions(), clock)
	r.log = NewLogReporter(st, store.LEDBrightnessDefault)
	r.engine = engine.New(p, st, r.log, engine.DefaultOptions(), clock)

	sh := shell.New(shell.Deps{
		Meter:      r.engine,
		Sensor:     ledTracker{Sensor: r.sensor, log: r.log},
		Prefs:      st,
		Log:        st,
		Revision:   Revision,
		LEDKey:     store.LEDBrightnessKey,
		LEDDefault: store.LEDBrightnessDefault,
	})
	r.meter = NewMeter(r.engine, sh, clock)

	if run {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- r.meter.Run(ctx) }()
		t.Cleanup(func() {
			cancel()
			assert.ErrorIs(t, <-done, context.Canceled)
		})
	}
	return r
}

func TestMeterExecutesCommands(t *testing.T) {
	r := newRig(t, true)

	lines, err := r.meter.Execute(context.Background(), "mode ir")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mode: IR only (legacy)"}, lines)
	assert.False(t, r.engine.RatioMode())

	lines, err = r.meter.Execute(context.Background(), "MODE RATIO")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mode: RATIO (Red/IR)"}, lines)

	lines, err = r.meter.Execute(context.Background(), "CAL 50")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Calibration point 1 recorded:",
		"  Ratio: 0.5000",
		"  Roast: 50",
	}, lines)
	assert.Len(t, r.engine.SessionPoints(), 1)
}

func TestMeterTicksReachReporters(t *testing.T) {
	r := newRig(t, true)

	assert.Eventually(t, func() bool {
		n, err := r.store.CountMeasurements()
		return err == nil && n > 0
	}, 2*time.Second, 10*time.Millisecond)

	res, ok := r.engine.Last()
	require.True(t, ok)
	assert.Equal(t, engine.SamplePresent, res.State)
	assert.Equal(t, 42, res.Measurement.RoastIndex)
}

func TestMeterLEDCommandUpdatesLogStamp(t *testing.T) {
	r := newRig(t, true)

	lines, err := r.meter.Execute(context.Background(), "LED 120")
	require.NoError(t, err)
	require.NotEmpty(t, lines)

	r.sensor.mu.Lock()
	assert.Equal(t, uint8(120), r.sensor.brightness)
	r.sensor.mu.Unlock()
	assert.Equal(t, int32(120), r.log.ledBrightness.Load())
	assert.Equal(t, 120, r.store.GetInt(store.LEDBrightnessKey, 0))
}

func TestMeterExecuteHonorsContext(t *testing.T) {
	r := newRig(t, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.meter.Execute(ctx, "HELP")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

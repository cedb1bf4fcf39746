// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package engine runs the measurement tick: presence check, averaged
// sample, and mapping to a roast index through the active calibration.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/roast_meter/internal/calibration"
	"github.com/relabs-tech/roast_meter/internal/sample"
	"github.com/relabs-tech/roast_meter/internal/timeutil"
)

// Store persists the active calibration.
type Store interface {
	// LoadCurve returns the stored curve and whether the meter was ever
	// calibrated. When it was not, the factory curve is returned.
	LoadCurve() (calibration.Curve, bool, error)
	SaveCurve(curve calibration.Curve, sessionID uuid.UUID) error
	ResetCurve() error
}

// Options tune the engine. Zero fields take the DefaultOptions value.
type Options struct {
	Period          time.Duration
	PresenceDelta   uint32
	BaselineIR      uint32 // used when CaptureBaseline fails
	BaselineSamples int
	Legacy          calibration.LegacyModel
	RatioMode       bool
}

// DefaultOptions returns the reference tick period, thresholds and legacy
// constants, starting in ratio mode.
func DefaultOptions() Options {
	return Options{
		Period:          100 * time.Millisecond,
		PresenceDelta:   100,
		BaselineIR:      30000,
		BaselineSamples: 10,
		Legacy:          calibration.DefaultLegacyModel(),
		RatioMode:       true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Period <= 0 {
		o.Period = d.Period
	}
	if o.PresenceDelta == 0 {
		o.PresenceDelta = d.PresenceDelta
	}
	if o.BaselineIR == 0 {
		o.BaselineIR = d.BaselineIR
	}
	if o.BaselineSamples <= 0 {
		o.BaselineSamples = d.BaselineSamples
	}
	if o.Legacy == (calibration.LegacyModel{}) {
		o.Legacy = d.Legacy
	}
	return o
}

// Engine owns the active calibration curve and the calibration session.
// Tick and the session methods must be called from one goroutine; the
// read-only accessors are safe from any goroutine.
type Engine struct {
	pipeline *sample.Pipeline
	store    Store
	reporter Reporter
	opts     Options
	clock    timeutil.Clock

	baseline   atomic.Uint32
	ratioMode  atomic.Bool
	calibrated atomic.Bool
	curve      atomic.Pointer[calibration.Curve]
	last       atomic.Pointer[Result]

	session  *calibration.Session
	lastTick time.Time
}

// New builds an engine and loads the calibration from store. A stored
// calibration that cannot be read falls back to the factory curve.
func New(pipeline *sample.Pipeline, store Store, reporter Reporter, opts Options, clock timeutil.Clock) *Engine {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if reporter == nil {
		reporter = Reporters{}
	}
	opts = opts.withDefaults()

	e := &Engine{
		pipeline: pipeline,
		store:    store,
		reporter: reporter,
		opts:     opts,
		clock:    clock,
		session:  calibration.NewSession(),
	}
	e.baseline.Store(opts.BaselineIR)
	e.ratioMode.Store(opts.RatioMode)

	curve, ok, err := store.LoadCurve()
	if err != nil {
		log.Printf("engine: WARNING: failed to load calibration, using defaults: %v", err)
		curve, ok = calibration.DefaultCurve(), false
	}
	e.curve.Store(&curve)
	e.calibrated.Store(ok)
	if ok {
		log.Println("engine: loaded custom calibration")
	} else {
		log.Println("engine: using default calibration")
	}
	return e
}

// CaptureBaseline averages raw IR reads with nothing under the sensor and
// uses the result as the ambient baseline. On any read error the configured
// fallback baseline is kept and the error returned.
func (e *Engine) CaptureBaseline() (uint32, error) {
	var sum uint64
	for i := 0; i < e.opts.BaselineSamples; i++ {
		ir, err := e.pipeline.ReadIR()
		if err != nil {
			e.baseline.Store(e.opts.BaselineIR)
			return e.opts.BaselineIR, fmt.Errorf("capture baseline: %w", err)
		}
		sum += uint64(ir)
		e.clock.Sleep(e.pipeline.Options().Delay)
	}
	b := uint32(sum / uint64(e.opts.BaselineSamples))
	e.baseline.Store(b)
	log.Printf("engine: ambient IR baseline %d", b)
	return b, nil
}

// Baseline returns the ambient IR baseline.
func (e *Engine) Baseline() uint32 {
	return e.baseline.Load()
}

// SetRatioMode selects ratio mode (true) or legacy IR mode (false). It takes
// effect on the next tick.
func (e *Engine) SetRatioMode(on bool) {
	e.ratioMode.Store(on)
}

// RatioMode reports whether ratio mode is active.
func (e *Engine) RatioMode() bool {
	return e.ratioMode.Load()
}

// Mode returns the active mapping.
func (e *Engine) Mode() Mode {
	if e.ratioMode.Load() {
		return ModeRatio
	}
	return ModeIR
}

// Curve returns the active calibration.
func (e *Engine) Curve() calibration.Curve {
	return *e.curve.Load()
}

// Calibrated reports whether the active curve came from an operator
// calibration rather than the factory defaults.
func (e *Engine) Calibrated() bool {
	return e.calibrated.Load()
}

// Last returns the most recent tick result, if any tick has run.
func (e *Engine) Last() (Result, bool) {
	r := e.last.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// Poll runs a tick when at least one period has elapsed since the previous
// one, and reports whether it did.
func (e *Engine) Poll(now time.Time) (Result, bool) {
	if !e.lastTick.IsZero() && now.Sub(e.lastTick) < e.opts.Period {
		return Result{}, false
	}
	r := e.Tick()
	e.lastTick = now
	return r, true
}

// Tick evaluates the sample state once and notifies the reporter.
func (e *Engine) Tick() Result {
	r := e.evaluate()
	e.last.Store(&r)

	if r.State == SamplePresent {
		e.reporter.RoastIndex(r.Measurement, r.Mode)
	} else {
		e.reporter.NoSample()
	}
	return r
}

func (e *Engine) evaluate() Result {
	mode := e.Mode()
	r := Result{State: NoSample, Mode: mode, Time: e.clock.Now()}

	ir, err := e.pipeline.ReadIR()
	if err != nil {
		log.Printf("engine: WARNING: presence check failed: %v", err)
		r.Err = err
		return r
	}
	if int64(ir)-int64(e.baseline.Load()) <= int64(e.opts.PresenceDelta) {
		return r
	}

	m, err := e.pipeline.Sample()
	if err != nil {
		if errors.Is(err, sample.ErrInvalidMeasurement) {
			log.Printf("engine: WARNING: %v", err)
		} else {
			log.Printf("engine: WARNING: sample failed: %v", err)
		}
		r.Measurement = m
		r.Err = err
		return r
	}

	m.RoastIndex = e.mapToRoastIndex(m, mode)
	r.State = SamplePresent
	r.Measurement = m
	return r
}

func (e *Engine) mapToRoastIndex(m sample.Measurement, mode Mode) int {
	if mode == ModeIR {
		return e.opts.Legacy.RoastIndex(int(m.IR / 1000))
	}
	return e.curve.Load().RoastIndex(m.Ratio)
}

// Measure takes one full sample outside the tick schedule and maps it with
// the active mode. The reporter is not notified.
func (e *Engine) Measure() (sample.Measurement, error) {
	m, err := e.pipeline.Sample()
	if err != nil {
		return m, err
	}
	m.RoastIndex = e.mapToRoastIndex(m, e.Mode())
	return m, nil
}

// Commit persists curve and then makes it active. If persisting fails the
// active curve is left unchanged.
func (e *Engine) Commit(curve calibration.Curve) error {
	return e.commit(curve, uuid.New())
}

func (e *Engine) commit(curve calibration.Curve, sessionID uuid.UUID) error {
	if err := e.store.SaveCurve(curve, sessionID); err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	e.curve.Store(&curve)
	e.calibrated.Store(true)
	log.Printf("engine: calibration %s committed", sessionID)
	return nil
}

// ResetCalibration restores the factory curve and marks the stored
// calibration invalid.
func (e *Engine) ResetCalibration() error {
	if err := e.store.ResetCurve(); err != nil {
		return fmt.Errorf("reset calibration: %w", err)
	}
	curve := calibration.DefaultCurve()
	e.curve.Store(&curve)
	e.calibrated.Store(false)
	log.Println("engine: calibration reset to defaults")
	return nil
}

// AddPoint takes a fresh measurement and records it against the known
// roast index. The measurement is returned even when the point is rejected.
func (e *Engine) AddPoint(known int) (sample.Measurement, int, error) {
	if e.session.Len() >= calibration.NumPoints {
		return sample.Measurement{}, e.session.Len(), calibration.ErrSessionFull
	}
	m, err := e.pipeline.Sample()
	if err != nil {
		log.Printf("engine: WARNING: calibration sample: %v", err)
	}
	n, err := e.session.AddPoint(known, m)
	return m, n, err
}

// SessionPoints returns the captured calibration points in capture order.
func (e *Engine) SessionPoints() []calibration.Point {
	return e.session.Points()
}

// ClearSession discards captured points. The active curve is untouched.
func (e *Engine) ClearSession() {
	e.session.Clear()
}

// Finalize builds a curve from the session, persists it and makes it
// active. On any error the session keeps its points.
func (e *Engine) Finalize() (calibration.Curve, error) {
	id := e.session.ID()
	return e.session.Finalize(func(c calibration.Curve) error {
		return e.commit(c, id)
	})
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Mock simulates the sensor without hardware. It alternates between an
// empty chamber and a loaded sample every Period, with a little noise on
// both channels.
type Mock struct {
	mu sync.Mutex

	AmbientRed, AmbientIR uint32
	SampleRed, SampleIR   uint32
	Period                time.Duration
	Noise                 float64 // relative, e.g. 0.005

	brightness uint8
	start      time.Time
	now        func() time.Time
}

// NewMock returns a mock that reads as an empty chamber for the first
// period after its first read, then as a medium roast sample (ratio 0.5).
// Noise stays below the default presence threshold.
func NewMock() *Mock {
	return &Mock{
		AmbientRed: 15000,
		AmbientIR:  30000,
		SampleRed:  20000,
		SampleIR:   40000,
		Period:     10 * time.Second,
		Noise:      0.001,
		brightness: 95,
		now:        time.Now,
	}
}

// ReadChannels returns the simulated red and IR values.
func (m *Mock) ReadChannels() (uint32, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.start.IsZero() {
		m.start = m.now()
	}
	red, ir := m.AmbientRed, m.AmbientIR
	if m.Period > 0 && (m.now().Sub(m.start)/m.Period)%2 == 1 {
		red, ir = m.SampleRed, m.SampleIR
	}
	return m.jitter(red), m.jitter(ir), nil
}

func (m *Mock) jitter(v uint32) uint32 {
	if m.Noise <= 0 {
		return v
	}
	f := float64(v) * (1 + m.Noise*(2*rand.Float64()-1))
	if f < 0 {
		return 0
	}
	return uint32(f)
}

// SetLEDBrightness records b; the mock does not scale its readings.
func (m *Mock) SetLEDBrightness(b uint8) error {
	m.mu.Lock()
	m.brightness = b
	m.mu.Unlock()
	return nil
}

// LEDBrightness returns the last brightness set.
func (m *Mock) LEDBrightness() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brightness
}

// ReadRegister reports the part ID and LED amplitudes; other registers
// read as zero.
func (m *Mock) ReadRegister(reg byte) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch reg {
	case regPartID:
		return MAX30105PartID, nil
	case regLED1PulseAmp, regLED2PulseAmp:
		return m.brightness, nil
	case regModeConfig:
		return modeRedIR, nil
	}
	return 0, nil
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors holds the optical sensor drivers behind the sample
// pipeline.
package sensors

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// MAX30105PartID is the value of the PART_ID register.
const MAX30105PartID = 0x15

// ErrNoData is returned when the FIFO produced no sample within the read
// timeout.
var ErrNoData = errors.New("max30105: no new sample")

// MAX30105 drives a MAX30105 particle sensor in red + IR mode over I2C.
type MAX30105 struct {
	mu      sync.Mutex
	bus     i2c.BusCloser
	dev     *i2c.Dev
	timeout time.Duration

	red, ir uint32
}

// OpenMAX30105 opens the I2C bus ("" for the first available), verifies the
// part ID and configures the sensor with both LEDs at brightness.
func OpenMAX30105(busName string, addr uint16, brightness uint8) (*MAX30105, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("max30105: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("max30105: open I2C bus %q: %w", busName, err)
	}
	// 400kHz fast mode; not every bus driver supports changing it
	if err := bus.SetSpeed(400 * physic.KiloHertz); err != nil {
		log.Printf("max30105: WARNING: set bus speed: %v", err)
	}

	s := &MAX30105{
		bus:     bus,
		dev:     &i2c.Dev{Bus: bus, Addr: addr},
		timeout: 250 * time.Millisecond,
	}

	id, err := s.readReg(regPartID)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("max30105: read part id at 0x%02X: %w", addr, err)
	}
	if id != MAX30105PartID {
		bus.Close()
		return nil, fmt.Errorf("max30105: unexpected part id 0x%02X at 0x%02X", id, addr)
	}

	if err := s.setup(brightness); err != nil {
		bus.Close()
		return nil, err
	}
	log.Printf("max30105: initialized at 0x%02X, LED brightness %d", addr, brightness)
	return s, nil
}

// setup mirrors the reference configuration: 4-sample FIFO averaging,
// red + IR, 50 samples/s, 411us pulses, 16384nA ADC range.
func (s *MAX30105) setup(brightness uint8) error {
	if err := s.softReset(); err != nil {
		return err
	}

	writes := []struct {
		reg, val byte
	}{
		{regFIFOConfig, fifoSampleAvg4 | fifoRolloverEnable},
		{regModeConfig, modeRedIR},
		{regParticleConfig, adcRange16384 | sampleRate50 | pulseWidth411},
		{regLED1PulseAmp, brightness},
		{regLED2PulseAmp, brightness},
		{regLED3PulseAmp, 0},
		{regMultiLEDConfig1, slotRed | slotIR<<4},
		{regFIFOWritePtr, 0},
		{regFIFOOverflow, 0},
		{regFIFOReadPtr, 0},
	}
	for _, w := range writes {
		if err := s.writeReg(w.reg, w.val); err != nil {
			return fmt.Errorf("max30105: setup register 0x%02X: %w", w.reg, err)
		}
	}
	return nil
}

func (s *MAX30105) softReset() error {
	if err := s.writeReg(regModeConfig, modeReset); err != nil {
		return fmt.Errorf("max30105: reset: %w", err)
	}
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		v, err := s.readReg(regModeConfig)
		if err != nil {
			return fmt.Errorf("max30105: reset: %w", err)
		}
		if v&modeReset == 0 {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return fmt.Errorf("max30105: reset did not complete")
}

// SetLEDBrightness sets the red and IR pulse amplitude.
func (s *MAX30105) SetLEDBrightness(b uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeReg(regLED1PulseAmp, b); err != nil {
		return fmt.Errorf("max30105: set red amplitude: %w", err)
	}
	if err := s.writeReg(regLED2PulseAmp, b); err != nil {
		return fmt.Errorf("max30105: set IR amplitude: %w", err)
	}
	return nil
}

// ReadChannels waits up to the read timeout for new FIFO data and returns
// the most recent red and IR values.
func (s *MAX30105) ReadChannels() (uint32, uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(s.timeout)
	for {
		n, err := s.drainFIFO()
		if err != nil {
			return 0, 0, err
		}
		if n > 0 {
			return s.red, s.ir, nil
		}
		if time.Now().After(deadline) {
			return 0, 0, ErrNoData
		}
		time.Sleep(time.Millisecond)
	}
}

// drainFIFO reads every pending sample and keeps the newest.
func (s *MAX30105) drainFIFO() (int, error) {
	wr, err := s.readReg(regFIFOWritePtr)
	if err != nil {
		return 0, fmt.Errorf("max30105: read FIFO write pointer: %w", err)
	}
	rd, err := s.readReg(regFIFOReadPtr)
	if err != nil {
		return 0, fmt.Errorf("max30105: read FIFO read pointer: %w", err)
	}
	n := int(wr-rd) & (fifoDepth - 1)
	if n == 0 {
		return 0, nil
	}

	buf := make([]byte, n*bytesPerSample)
	if err := s.dev.Tx([]byte{regFIFOData}, buf); err != nil {
		return 0, fmt.Errorf("max30105: read FIFO: %w", err)
	}
	last := buf[len(buf)-bytesPerSample:]
	s.red = decodeSample(last[0:3])
	s.ir = decodeSample(last[3:6])
	return n, nil
}

// decodeSample unpacks one 18-bit big-endian FIFO word.
func decodeSample(b []byte) uint32 {
	return (uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])) & sampleMask
}

// ReadRegister returns the raw value of one register.
func (s *MAX30105) ReadRegister(reg byte) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readReg(reg)
}

func (s *MAX30105) readReg(reg byte) (byte, error) {
	var r [1]byte
	if err := s.dev.Tx([]byte{reg}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (s *MAX30105) writeReg(reg, val byte) error {
	return s.dev.Tx([]byte{reg, val}, nil)
}

// Close shuts the LEDs down and releases the bus.
func (s *MAX30105) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeReg(regModeConfig, modeShutdown); err != nil {
		log.Printf("max30105: WARNING: shutdown: %v", err)
	}
	return s.bus.Close()
}

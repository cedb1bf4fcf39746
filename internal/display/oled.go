// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"log"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/sample"
)

// Panel is the drawing surface of an OLED.
type Panel interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Bounds() image.Rectangle
}

// Screen pushes rendered frames to a panel, skipping frames identical to
// the one already shown. It doubles as an engine reporter.
type Screen struct {
	mu     sync.Mutex
	panel  Panel
	closer func() error
	shown  string
}

// NewScreen wraps an already initialized panel.
func NewScreen(panel Panel) *Screen {
	return &Screen{panel: panel}
}

// OpenOLED initializes an SSD1306 on the given I2C bus ("" for the first
// available).
func OpenOLED(busName string, addr uint16) (*Screen, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", addr)

	s := NewScreen(dev)
	s.closer = closeFunc(dev, bus)
	return s, nil
}

func closeFunc(dev *ssd1306.Dev, bus i2c.BusCloser) func() error {
	return func() error {
		if err := dev.Halt(); err != nil {
			log.Printf("display: WARNING: halt: %v", err)
		}
		return bus.Close()
	}
}

// Show draws img unless key names the frame currently on the panel.
func (s *Screen) Show(key string, img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != "" && key == s.shown {
		return
	}
	if err := s.panel.Draw(s.panel.Bounds(), img, image.Point{}); err != nil {
		log.Printf("display: error updating display: %v", err)
		s.shown = ""
		return
	}
	s.shown = key
}

func (s *Screen) Splash(revision string) { s.Show("splash", SplashScreen(revision)) }
func (s *Screen) SensorError()           { s.Show("sensor-error", SensorErrorScreen()) }
func (s *Screen) Ready()                 { s.Show("ready", ReadyScreen()) }

func (s *Screen) Message(lines ...string) {
	s.Show("", MessageScreen(lines...))
}

func (s *Screen) Warmup(secondsLeft int) {
	s.Show(fmt.Sprintf("warmup-%d", secondsLeft), WarmupScreen(secondsLeft))
}

func (s *Screen) CalibrationPoint(point, known int) {
	s.Show(fmt.Sprintf("cal-%d-%d", point, known), CalibrationScreen(point, known))
}

// NoSample implements engine.Reporter.
func (s *Screen) NoSample() {
	s.Show("load-sample", LoadSampleScreen())
}

// RoastIndex implements engine.Reporter.
func (s *Screen) RoastIndex(m sample.Measurement, _ engine.Mode) {
	s.Show(fmt.Sprintf("index-%d", m.RoastIndex), RoastIndexScreen(m.RoastIndex))
}

// Close halts the panel and releases its bus.
func (s *Screen) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

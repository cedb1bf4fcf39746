// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"

	"github.com/relabs-tech/roast_meter/internal/config"
	"github.com/relabs-tech/roast_meter/internal/display"
	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/sample"
)

// Display is everything the meter shows on its screen.
type Display interface {
	engine.Reporter
	Splash(revision string)
	Message(lines ...string)
	SensorError()
	Warmup(secondsLeft int)
	Ready()
	CalibrationPoint(point, known int)
	Close() error
}

// noDisplay stands in when no OLED is attached.
type noDisplay struct{}

func (noDisplay) NoSample()                                  {}
func (noDisplay) RoastIndex(sample.Measurement, engine.Mode) {}
func (noDisplay) Splash(string)                              {}
func (noDisplay) Message(...string)                          {}
func (noDisplay) SensorError()                               {}
func (noDisplay) Warmup(int)                                 {}
func (noDisplay) Ready()                                     {}
func (noDisplay) CalibrationPoint(int, int)                  {}
func (noDisplay) Close() error                               { return nil }

// openDisplay returns the OLED, or a no-op display when it is disabled or
// missing. The bool reports whether a real panel is attached.
func openDisplay(cfg *config.Config) (Display, bool) {
	if !cfg.DisplayEnabled {
		log.Println("display: disabled by configuration")
		return noDisplay{}, false
	}
	screen, err := display.OpenOLED(cfg.SensorI2CBus, cfg.DisplayI2CAddr)
	if err != nil {
		log.Printf("display: OLED initialization failed, continuing without display: %v", err)
		return noDisplay{}, false
	}
	screen.Message("Initializing...")
	return screen, true
}

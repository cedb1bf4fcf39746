// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package shell implements the line-oriented operator command set shared
// by the serial port, stdin and the websocket console.
package shell

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/roast_meter/internal/calibration"
	"github.com/relabs-tech/roast_meter/internal/sample"
)

// Meter is the measurement and calibration surface the shell drives.
type Meter interface {
	Measure() (sample.Measurement, error)
	AddPoint(known int) (sample.Measurement, int, error)
	Finalize() (calibration.Curve, error)
	ClearSession()
	SessionPoints() []calibration.Point
	ResetCalibration() error
	Curve() calibration.Curve
	Calibrated() bool
	SetRatioMode(on bool)
	RatioMode() bool
}

// Sensor is the raw hardware access used by LED, TEST and REGS.
type Sensor interface {
	ReadChannels() (red, ir uint32, err error)
	SetLEDBrightness(b uint8) error
	ReadRegister(reg byte) (byte, error)
}

// Prefs persists operator settings.
type Prefs interface {
	GetInt(key string, def int) int
	PutInt(key string, v int) error
	Valid() bool
}

// MeasurementLog is the persisted measurement history.
type MeasurementLog interface {
	DumpMeasurements(w io.Writer) (int, error)
	ClearMeasurements() error
}

// Deps wires the shell to the rest of the meter. Meter is required; a nil
// optional dependency makes its commands report that they are unavailable.
type Deps struct {
	Meter  Meter
	Sensor Sensor
	Prefs  Prefs
	Log    MeasurementLog

	Revision         string
	Warmup           time.Duration
	DisplayAvailable bool

	// LEDKey and LEDDefault locate the persisted LED brightness.
	LEDKey     string
	LEDDefault int

	// Optional hooks.
	OnCalibrationPoint   func(point, known int)
	OnCalibrationChanged func(curve calibration.Curve, calibrated bool)
}

// Shell executes one command line at a time. It is not safe for concurrent
// use; callers serialize Execute.
type Shell struct {
	d        Deps
	commands map[string]func(w io.Writer, args []string)
}

// New returns a shell bound to d.
func New(d Deps) *Shell {
	if d.LEDKey == "" {
		d.LEDKey = "led_brightness"
	}
	s := &Shell{d: d}
	s.commands = map[string]func(io.Writer, []string){
		"HELP":   s.help,
		"DUMP":   s.dump,
		"STATUS": s.status,
		"CAL":    s.cal,
		"SAVE":   s.save,
		"CLEAR":  s.clear,
		"RESET":  s.reset,
		"TABLE":  s.table,
		"MODE":   s.mode,
		"LED":    s.led,
		"TEST":   s.selfTest,
		"LOG":    s.log,
		"REGS":   s.regs,
	}
	return s
}

// Execute runs one command line and writes the reply to w. Commands are
// case-insensitive; blank lines are ignored.
func (s *Shell) Execute(w io.Writer, line string) {
	fields := strings.Fields(strings.ToUpper(line))
	if len(fields) == 0 {
		return
	}
	cmd, ok := s.commands[fields[0]]
	if !ok {
		fmt.Fprintln(w, "Unknown command. Type HELP for list.")
		return
	}
	cmd(w, fields[1:])
}

// Lines runs one command and returns its reply split into lines.
func (s *Shell) Lines(line string) []string {
	var b strings.Builder
	s.Execute(&b, line)
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func (s *Shell) help(w io.Writer, _ []string) {
	fmt.Fprintf(w, "=== Roast Meter %s Commands ===\n", s.d.Revision)
	fmt.Fprintln(w, "HELP       - Show this help")
	fmt.Fprintln(w, "DUMP       - Show current raw reading")
	fmt.Fprintln(w, "STATUS     - Show device status")
	fmt.Fprintln(w, "CAL <val>  - Add calibration point (e.g., CAL 65)")
	fmt.Fprintln(w, "SAVE       - Save calibration")
	fmt.Fprintln(w, "CLEAR      - Clear temp calibration")
	fmt.Fprintln(w, "RESET      - Reset to defaults")
	fmt.Fprintln(w, "TABLE      - Show calibration table")
	fmt.Fprintln(w, "MODE RATIO - Use Red/IR ratio mode")
	fmt.Fprintln(w, "MODE IR    - Use IR-only mode (legacy)")
	fmt.Fprintln(w, "LED <0-255>- Set LED brightness")
	fmt.Fprintln(w, "TEST       - Run self-test")
	fmt.Fprintln(w, "LOG DUMP   - Print measurement log as CSV")
	fmt.Fprintln(w, "LOG CLEAR  - Erase measurement log")
	fmt.Fprintln(w, "REGS       - Dump sensor registers")
	fmt.Fprintln(w, "=================================")
}

func (s *Shell) dump(w io.Writer, _ []string) {
	m, err := s.d.Meter.Measure()

	fmt.Fprintln(w, "=== Current Reading ===")
	if err != nil {
		fmt.Fprintf(w, "Readings:   %d\n", m.Readings)
		fmt.Fprintln(w, "Valid:      No")
		fmt.Fprintf(w, "Reason:     %v\n", err)
	} else {
		fmt.Fprintf(w, "Red Raw:    %d\n", m.Red)
		fmt.Fprintf(w, "IR Raw:     %d\n", m.IR)
		fmt.Fprintf(w, "Ratio:      %.4f\n", m.Ratio)
		fmt.Fprintf(w, "Roast:      %d\n", m.RoastIndex)
		fmt.Fprintf(w, "Readings:   %d (sd red %.1f, ir %.1f)\n", m.Readings, m.RedStdDev, m.IRStdDev)
		fmt.Fprintln(w, "Valid:      Yes")
	}
	fmt.Fprintln(w, "=======================")
}

func (s *Shell) status(w io.Writer, _ []string) {
	fmt.Fprintln(w, "=== Device Status ===")
	fmt.Fprintf(w, "Firmware:   %s\n", s.d.Revision)
	fmt.Fprintf(w, "Mode:       %s\n", modeName(s.d.Meter.RatioMode()))
	if s.d.Prefs != nil {
		fmt.Fprintf(w, "LED Power:  %d\n", s.d.Prefs.GetInt(s.d.LEDKey, s.d.LEDDefault))
	}
	fmt.Fprintf(w, "Cal Points: %d\n", calibration.NumPoints)
	fmt.Fprintf(w, "Calibrated: %s\n", yesNo(s.d.Meter.Calibrated()))
	fmt.Fprintf(w, "Session:    %d/%d\n", len(s.d.Meter.SessionPoints()), calibration.NumPoints)
	fmt.Fprintf(w, "Warmup:     %ds\n", int(s.d.Warmup.Seconds()))
	fmt.Fprintf(w, "OLED:       %s\n", yesNo(s.d.DisplayAvailable))
	fmt.Fprintln(w, "=====================")
}

func (s *Shell) cal(w io.Writer, args []string) {
	known, err := intArg(args)
	if err != nil || known < calibration.MinRoastIndex || known > calibration.MaxRoastIndex {
		fmt.Fprintf(w, "ERROR: Roast index must be %d-%d\n", calibration.MinRoastIndex, calibration.MaxRoastIndex)
		return
	}

	m, n, err := s.d.Meter.AddPoint(known)
	switch {
	case errors.Is(err, calibration.ErrSessionFull):
		fmt.Fprintln(w, "ERROR: Maximum calibration points reached.")
		fmt.Fprintln(w, "Use SAVE to store or CLEAR to restart.")
		return
	case errors.Is(err, calibration.ErrInvalidSample):
		fmt.Fprintln(w, "ERROR: Cannot take measurement. Check sample.")
		return
	case err != nil:
		fmt.Fprintf(w, "ERROR: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Calibration point %d recorded:\n", n)
	fmt.Fprintf(w, "  Ratio: %.4f\n", m.Ratio)
	fmt.Fprintf(w, "  Roast: %d\n", known)
	if n >= calibration.NumPoints {
		fmt.Fprintln(w, "All calibration points recorded. Send SAVE to store.")
	} else {
		fmt.Fprintf(w, "Points recorded: %d/%d\n", n, calibration.NumPoints)
	}
	if s.d.OnCalibrationPoint != nil {
		s.d.OnCalibrationPoint(n, known)
	}
}

func (s *Shell) save(w io.Writer, _ []string) {
	curve, err := s.d.Meter.Finalize()
	switch {
	case errors.Is(err, calibration.ErrInsufficientPoints):
		fmt.Fprintf(w, "ERROR: Need at least %d calibration points.\n", calibration.MinPoints)
		return
	case err != nil:
		fmt.Fprintf(w, "ERROR: Calibration not saved: %v\n", err)
		return
	}
	fmt.Fprintln(w, "Calibration finalized and saved!")
	printTable(w, curve)
	s.calibrationChanged(curve, true)
}

func (s *Shell) clear(w io.Writer, _ []string) {
	s.d.Meter.ClearSession()
	fmt.Fprintln(w, "Temporary calibration cleared")
}

func (s *Shell) reset(w io.Writer, _ []string) {
	if err := s.d.Meter.ResetCalibration(); err != nil {
		fmt.Fprintf(w, "ERROR: %v\n", err)
		return
	}
	fmt.Fprintln(w, "Calibration reset to defaults")
	curve := s.d.Meter.Curve()
	printTable(w, curve)
	s.calibrationChanged(curve, false)
}

func (s *Shell) calibrationChanged(curve calibration.Curve, calibrated bool) {
	if s.d.OnCalibrationChanged != nil {
		s.d.OnCalibrationChanged(curve, calibrated)
	}
}

func (s *Shell) table(w io.Writer, _ []string) {
	printTable(w, s.d.Meter.Curve())
}

func printTable(w io.Writer, curve calibration.Curve) {
	fmt.Fprintln(w, "=== Calibration Table ===")
	fmt.Fprintln(w, "Point\tRatio\t\tRoast")
	for i, p := range curve.Points() {
		fmt.Fprintf(w, "%d\t%.4f\t\t%d\n", i+1, p.Ratio, p.RoastIndex)
	}
	fmt.Fprintln(w, "=========================")
}

func (s *Shell) mode(w io.Writer, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(w, "ERROR: Use MODE RATIO or MODE IR")
		return
	}
	switch args[0] {
	case "RATIO":
		s.d.Meter.SetRatioMode(true)
		fmt.Fprintln(w, "Mode: RATIO (Red/IR)")
	case "IR":
		s.d.Meter.SetRatioMode(false)
		fmt.Fprintln(w, "Mode: IR only (legacy)")
	default:
		fmt.Fprintln(w, "ERROR: Use MODE RATIO or MODE IR")
	}
}

func (s *Shell) led(w io.Writer, args []string) {
	b, err := intArg(args)
	if err != nil || b < 0 || b > 255 {
		fmt.Fprintln(w, "ERROR: Brightness must be 0-255")
		return
	}
	if s.d.Sensor == nil {
		fmt.Fprintln(w, "ERROR: Sensor not available")
		return
	}
	if err := s.d.Sensor.SetLEDBrightness(uint8(b)); err != nil {
		fmt.Fprintf(w, "ERROR: %v\n", err)
		return
	}
	if s.d.Prefs != nil {
		if err := s.d.Prefs.PutInt(s.d.LEDKey, b); err != nil {
			fmt.Fprintf(w, "WARNING: brightness not persisted: %v\n", err)
		}
	}
	fmt.Fprintf(w, "LED brightness set to: %d\n", b)
}

func (s *Shell) selfTest(w io.Writer, _ []string) {
	fmt.Fprintln(w, "=== Self Test ===")

	var red, ir uint32
	var readErr error
	if s.d.Sensor == nil {
		readErr = errors.New("not available")
	} else {
		red, ir, readErr = s.d.Sensor.ReadChannels()
	}

	if readErr == nil && ir > 0 && ir < 1000000 {
		fmt.Fprintf(w, "Sensor: OK (%d)\n", ir)
	} else if readErr != nil {
		fmt.Fprintf(w, "Sensor: FAIL (%v)\n", readErr)
	} else {
		fmt.Fprintln(w, "Sensor: FAIL")
	}

	if s.d.DisplayAvailable {
		fmt.Fprintln(w, "OLED: OK")
	} else {
		fmt.Fprintln(w, "OLED: NOT FOUND")
	}

	if s.d.Prefs != nil && s.d.Prefs.Valid() {
		fmt.Fprintln(w, "Storage: OK")
	} else {
		fmt.Fprintln(w, "Storage: NOT INITIALIZED")
	}

	if red > 0 {
		fmt.Fprintf(w, "Red LED: OK (%d)\n", red)
	} else {
		fmt.Fprintln(w, "Red LED: FAIL")
	}
	if ir > 0 {
		fmt.Fprintln(w, "IR LED: OK")
	} else {
		fmt.Fprintln(w, "IR LED: FAIL")
	}

	if red > 0 && ir > 0 {
		fmt.Fprintf(w, "Ratio: %.4f\n", float64(red)/float64(ir))
	} else {
		fmt.Fprintln(w, "Ratio: FAIL")
	}
	fmt.Fprintln(w, "=================")
}

func (s *Shell) log(w io.Writer, args []string) {
	if s.d.Log == nil {
		fmt.Fprintln(w, "ERROR: Measurement log not available")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(w, "ERROR: Use LOG DUMP or LOG CLEAR")
		return
	}
	switch args[0] {
	case "DUMP":
		n, err := s.d.Log.DumpMeasurements(w)
		if err != nil {
			fmt.Fprintf(w, "ERROR: %v\n", err)
			return
		}
		fmt.Fprintf(w, "%d entries\n", n)
	case "CLEAR":
		if err := s.d.Log.ClearMeasurements(); err != nil {
			fmt.Fprintf(w, "ERROR: %v\n", err)
			return
		}
		fmt.Fprintln(w, "Measurement log cleared")
	default:
		fmt.Fprintln(w, "ERROR: Use LOG DUMP or LOG CLEAR")
	}
}

func (s *Shell) regs(w io.Writer, _ []string) {
	if s.d.Sensor == nil {
		fmt.Fprintln(w, "ERROR: Sensor not available")
		return
	}
	fmt.Fprintln(w, "=== Sensor Registers ===")
	for _, r := range registerMap() {
		v, err := s.d.Sensor.ReadRegister(r.addr)
		if err != nil {
			fmt.Fprintf(w, "0x%02X %-16s ERROR: %v\n", r.addr, r.name, err)
			continue
		}
		fmt.Fprintf(w, "0x%02X %-16s 0x%02X\n", r.addr, r.name, v)
	}
	fmt.Fprintln(w, "========================")
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("want one argument, got %d", len(args))
	}
	return strconv.Atoi(args[0])
}

func modeName(ratio bool) string {
	if ratio {
		return "RATIO"
	}
	return "IR"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

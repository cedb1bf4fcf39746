// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/relabs-tech/roast_meter/internal/calibration"
	"github.com/relabs-tech/roast_meter/internal/config"
	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/sample"
	"github.com/relabs-tech/roast_meter/internal/sensors"
	"github.com/relabs-tech/roast_meter/internal/shell"
	"github.com/relabs-tech/roast_meter/internal/store"
	"github.com/relabs-tech/roast_meter/internal/timeutil"
)

// Revision is reported by STATUS and the splash screen.
const Revision = "v0.3"

// SensorRetryInterval is the pause between sensor initialization attempts.
const SensorRetryInterval = 5 * time.Second

// Sensor is the optical sensor as the meter uses it.
type Sensor interface {
	shell.Sensor
	Close() error
}

// RunOptions are the process-level inputs of RunRoastMeter.
type RunOptions struct {
	// Console is read for commands and receives replies and measurement
	// blocks. Nil disables the local console.
	Console io.Reader
	Out     io.Writer
}

// RunRoastMeter brings the meter up and runs it until ctx is cancelled.
func RunRoastMeter(ctx context.Context, opts RunOptions) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	out := &lockedWriter{w: opts.Out}

	screen, haveDisplay := openDisplay(cfg)
	defer screen.Close()

	st, err := store.Open(cfg.StorePath, store.Options{
		MaxLogEntries: cfg.LogMaxEntries,
		LEDBrightness: cfg.LEDBrightness,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	brightness := st.GetInt(store.LEDBrightnessKey, store.LEDBrightnessDefault)
	log.Printf("meter: LED brightness %d", brightness)

	sensor, err := openSensor(ctx, cfg, uint8(brightness), screen)
	if err != nil {
		return err
	}
	defer sensor.Close()

	screen.Splash(Revision)
	if !sleepCtx(ctx, 2*time.Second) {
		return ctx.Err()
	}
	if !warmUp(ctx, time.Duration(cfg.WarmupTime)*time.Second, screen, out) {
		return ctx.Err()
	}

	clock := timeutil.RealClock{}
	pipeline := sample.NewPipeline(sensor, sample.Options{
		Samples: cfg.SampleCount,
		Delay:   cfg.SampleDelayDuration(),
		Min:     cfg.RawMin,
		Max:     cfg.RawMax,
	}, clock)

	logReporter := NewLogReporter(st, brightness)
	reporters := engine.Reporters{screen, SerialReporter{W: out}, logReporter}

	var serialPort io.ReadWriteCloser
	if cfg.SerialPort != "" {
		serialPort, err = OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			log.Printf("meter: WARNING: serial console unavailable: %v", err)
			serialPort = nil
		} else {
			defer serialPort.Close()
		}
	}
	var serialOut *lockedWriter
	if serialPort != nil {
		serialOut = &lockedWriter{w: serialPort}
		reporters = append(reporters, SerialReporter{W: serialOut})
	}

	publisher, err := ConnectPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.TopicMeasurement, cfg.TopicCalibration)
	if err != nil {
		log.Printf("meter: WARNING: MQTT unavailable, continuing without telemetry: %v", err)
		publisher = nil
	} else {
		defer publisher.Close()
		reporters = append(reporters, publisher)
	}

	eng := engine.New(pipeline, st, reporters, engine.Options{
		Period:        cfg.TickPeriod(),
		PresenceDelta: cfg.PresenceDelta,
		BaselineIR:    cfg.BaselineIR,
		Legacy: calibration.LegacyModel{
			Intersection: cfg.LegacyIntersection,
			Deviation:    cfg.LegacyDeviation,
		},
		RatioMode: cfg.RatioMode,
	}, clock)
	if _, err := eng.CaptureBaseline(); err != nil {
		log.Printf("meter: WARNING: %v, using baseline %d", err, eng.Baseline())
	}

	onCalibrationChanged := func(calibration.Curve, bool) {}
	if publisher != nil {
		publisher.PublishCalibration(eng.Curve(), eng.Calibrated())
		onCalibrationChanged = publisher.PublishCalibration
	}

	sh := shell.New(shell.Deps{
		Meter:                eng,
		Sensor:               ledTracker{Sensor: sensor, log: logReporter},
		Prefs:                st,
		Log:                  st,
		Revision:             Revision,
		Warmup:               time.Duration(cfg.WarmupTime) * time.Second,
		DisplayAvailable:     haveDisplay,
		LEDKey:               store.LEDBrightnessKey,
		LEDDefault:           store.LEDBrightnessDefault,
		OnCalibrationPoint:   screen.CalibrationPoint,
		OnCalibrationChanged: onCalibrationChanged,
	})
	meter := NewMeter(eng, sh, clock)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		server := NewWebServer(cfg.WebServerPort, NewWebHandler(eng, meter, st))
		go func() {
			log.Printf("web: listening on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("web: server error: %v", err)
			}
		}()
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("web: shutdown error: %v", err)
			server.Close()
		}
	}()

	// The line readers block in Read and are unblocked by closing their
	// source on shutdown, so they are not waited for.
	if serialPort != nil {
		go func() {
			if err := ServeLines(ctx, "serial", serialPort, serialOut, "\r\n", meter); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("serial: %v", err)
			}
		}()
	}
	if opts.Console != nil {
		go func() {
			if err := ServeLines(ctx, "console", opts.Console, out, "\n", meter); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("console: %v", err)
			}
		}()
	}

	fmt.Fprintln(out, "Type HELP for available commands")
	err = meter.Run(ctx)
	cancel()
	wg.Wait()

	log.Println("meter: shut down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openSensor returns the configured sensor, retrying a missing MAX30105
// every SensorRetryInterval until ctx ends.
func openSensor(ctx context.Context, cfg *config.Config, brightness uint8, screen Display) (Sensor, error) {
	if cfg.SensorMock {
		log.Println("meter: using mock sensor")
		m := sensors.NewMock()
		m.AmbientIR = cfg.BaselineIR
		m.AmbientRed = cfg.BaselineIR / 2
		_ = m.SetLEDBrightness(brightness)
		return m, nil
	}

	for {
		s, err := sensors.OpenMAX30105(cfg.SensorI2CBus, cfg.SensorI2CAddr, brightness)
		if err == nil {
			return s, nil
		}
		log.Printf("meter: MAX30105 was not found, please check wiring/power: %v", err)
		screen.SensorError()
		if !sleepCtx(ctx, SensorRetryInterval) {
			return nil, ctx.Err()
		}
		log.Println("meter: retrying sensor initialization...")
	}
}

// warmUp counts down while the LEDs stabilize.
func warmUp(ctx context.Context, d time.Duration, screen Display, out io.Writer) bool {
	if d <= 0 {
		return true
	}
	start := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	lastShown := -1
	for {
		elapsed := time.Since(start)
		if elapsed > d {
			break
		}
		left := int((d - elapsed).Seconds())
		if left != lastShown {
			screen.Warmup(left)
			if lastShown == -1 || left%5 == 0 {
				fmt.Fprintf(out, "Warm Up %ds\n", left)
			}
			lastShown = left
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}

	screen.Ready()
	fmt.Fprintln(out, "(^o^)/ Ready!")
	return sleepCtx(ctx, 1500*time.Millisecond)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ledTracker keeps the measurement log's brightness stamp in step with the
// sensor.
type ledTracker struct {
	Sensor
	log *LogReporter
}

func (l ledTracker) SetLEDBrightness(b uint8) error {
	if err := l.Sensor.SetLEDBrightness(b); err != nil {
		return err
	}
	l.log.SetLEDBrightness(b)
	return nil
}

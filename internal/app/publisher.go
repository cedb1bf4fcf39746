// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/roast_meter/internal/calibration"
	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/sample"
)

// MeasurementMessage is the JSON payload published on the measurement
// topic. Present is false when nothing is under the sensor.
type MeasurementMessage struct {
	Time       time.Time `json:"time"`
	Present    bool      `json:"present"`
	Mode       string    `json:"mode,omitempty"`
	Red        uint32    `json:"red,omitempty"`
	IR         uint32    `json:"ir,omitempty"`
	Ratio      float64   `json:"ratio,omitempty"`
	RoastIndex int       `json:"roast_index,omitempty"`
}

// CalibrationMessage is the retained JSON payload on the calibration topic.
type CalibrationMessage struct {
	Time       time.Time           `json:"time"`
	Calibrated bool                `json:"calibrated"`
	Points     []calibration.Point `json:"points"`
}

// Publisher sends measurements and calibration changes to MQTT. It
// implements engine.Reporter.
type Publisher struct {
	client           mqtt.Client
	topicMeasurement string
	topicCalibration string
	now              func() time.Time

	// NoSample is published once per transition rather than every tick.
	idle bool
}

// ConnectPublisher connects to the broker.
func ConnectPublisher(broker, clientID, topicMeasurement, topicCalibration string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	// With ConnectRetry the token only completes once connected; a broker
	// that is down at startup is retried in the background.
	if token := client.Connect(); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("mqtt: connected to broker at %s", broker)
	return NewPublisher(client, topicMeasurement, topicCalibration), nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(client mqtt.Client, topicMeasurement, topicCalibration string) *Publisher {
	return &Publisher{
		client:           client,
		topicMeasurement: topicMeasurement,
		topicCalibration: topicCalibration,
		now:              time.Now,
	}
}

// NoSample implements engine.Reporter.
func (p *Publisher) NoSample() {
	if p.idle {
		return
	}
	p.idle = true
	p.publish(p.topicMeasurement, false, MeasurementMessage{Time: p.now()})
}

// RoastIndex implements engine.Reporter.
func (p *Publisher) RoastIndex(m sample.Measurement, mode engine.Mode) {
	p.idle = false
	p.publish(p.topicMeasurement, false, MeasurementMessage{
		Time:       p.now(),
		Present:    true,
		Mode:       mode.String(),
		Red:        m.Red,
		IR:         m.IR,
		Ratio:      m.Ratio,
		RoastIndex: m.RoastIndex,
	})
}

// PublishCalibration publishes the active curve as a retained message.
func (p *Publisher) PublishCalibration(curve calibration.Curve, calibrated bool) {
	p.publish(p.topicCalibration, true, CalibrationMessage{
		Time:       p.now(),
		Calibrated: calibrated,
		Points:     curve.Points(),
	})
}

func (p *Publisher) publish(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("mqtt: %s marshal error: %v", topic, err)
		return
	}
	// Not awaited on the tick goroutine.
	token := p.client.Publish(topic, 0, retained, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("mqtt: publish %s error: %v", topic, token.Error())
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

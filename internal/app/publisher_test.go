// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/roast_meter/internal/calibration"
	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/sample"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes. Methods the publisher does not use panic
// through the nil embedded interface.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	messages     []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.messages...)
}

func newTestPublisher() (*Publisher, *fakeClient) {
	c := &fakeClient{}
	p := NewPublisher(c, "roast/measurement", "roast/calibration")
	p.now = func() time.Time { return time.Unix(1000, 0) }
	return p, c
}

func TestPublisherRoastIndex(t *testing.T) {
	p, c := newTestPublisher()

	p.RoastIndex(sample.Measurement{Red: 20000, IR: 40000, Ratio: 0.5, RoastIndex: 42, Valid: true}, engine.ModeRatio)

	msgs := c.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "roast/measurement", msgs[0].topic)
	assert.False(t, msgs[0].retained)

	var m MeasurementMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &m))
	assert.True(t, m.Present)
	assert.Equal(t, "RATIO", m.Mode)
	assert.Equal(t, uint32(40000), m.IR)
	assert.Equal(t, 42, m.RoastIndex)
}

func TestPublisherNoSampleOncePerTransition(t *testing.T) {
	p, c := newTestPublisher()

	p.NoSample()
	p.NoSample()
	p.RoastIndex(sample.Measurement{Ratio: 0.5, RoastIndex: 42, Valid: true}, engine.ModeIR)
	p.NoSample()
	p.NoSample()

	msgs := c.sent()
	require.Len(t, msgs, 3)
	var presence []bool
	for _, msg := range msgs {
		var m MeasurementMessage
		require.NoError(t, json.Unmarshal(msg.payload, &m))
		presence = append(presence, m.Present)
	}
	assert.Equal(t, []bool{false, true, false}, presence)
}

func TestPublisherCalibrationIsRetained(t *testing.T) {
	p, c := newTestPublisher()

	p.PublishCalibration(calibration.DefaultCurve(), false)
	p.Close()

	msgs := c.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "roast/calibration", msgs[0].topic)
	assert.True(t, msgs[0].retained)

	var m CalibrationMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &m))
	assert.False(t, m.Calibrated)
	assert.Equal(t, calibration.DefaultPoints, m.Points)
	assert.True(t, c.disconnected)
}

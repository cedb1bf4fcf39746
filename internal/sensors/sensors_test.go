// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSampleMasks18Bits(t *testing.T) {
	assert.Equal(t, uint32(0x3FFFF), decodeSample([]byte{0xFF, 0xFF, 0xFF}))
	assert.Equal(t, uint32(40000), decodeSample([]byte{0x00, 0x9C, 0x40}))
}

func TestMockAlternates(t *testing.T) {
	start := time.Unix(0, 0)
	now := start
	m := NewMock()
	m.Noise = 0
	m.start = start
	m.now = func() time.Time { return now }

	red, ir, err := m.ReadChannels()
	require.NoError(t, err)
	assert.Equal(t, uint32(15000), red)
	assert.Equal(t, uint32(30000), ir)

	now = start.Add(m.Period + time.Second)
	red, ir, err = m.ReadChannels()
	require.NoError(t, err)
	assert.Equal(t, uint32(20000), red)
	assert.Equal(t, uint32(40000), ir)
}

func TestMockNoiseStaysBounded(t *testing.T) {
	m := NewMock()
	m.Period = 0
	for i := 0; i < 100; i++ {
		_, ir, _ := m.ReadChannels()
		assert.InDelta(t, 30000, ir, 30000*m.Noise+1)
	}
}

func TestRegisterMapCoversDriverRegisters(t *testing.T) {
	seen := map[byte]bool{}
	for _, r := range MAX30105RegisterMap() {
		assert.False(t, seen[r.Address], "duplicate register 0x%02X", r.Address)
		seen[r.Address] = true
	}
	for _, reg := range []byte{regFIFOConfig, regModeConfig, regParticleConfig, regLED1PulseAmp, regLED2PulseAmp, regPartID} {
		assert.True(t, seen[reg], "register 0x%02X missing", reg)
	}
}

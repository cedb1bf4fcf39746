package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roast_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# nothing here\n\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 100*time.Millisecond, cfg.TickPeriod())
	assert.Equal(t, 10*time.Millisecond, cfg.SampleDelayDuration())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
MQTT_BROKER = tcp://broker:1883
SENSOR_I2C_ADDR=0x57
DISPLAY_ENABLED=false
SERIAL_PORT=/dev/ttyUSB0
LED_BRIGHTNESS=200
LEGACY_DEVIATION=0.2
RATIO_MODE=false
SAMPLE_COUNT=16
`))
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, uint16(0x57), cfg.SensorI2CAddr)
	assert.False(t, cfg.DisplayEnabled)
	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialPort)
	assert.Equal(t, 200, cfg.LEDBrightness)
	assert.Equal(t, 0.2, cfg.LegacyDeviation)
	assert.False(t, cfg.RatioMode)
	assert.Equal(t, 16, cfg.SampleCount)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":      "SAMPLE_RATE=50",
		"missing equals":   "MQTT_BROKER",
		"led out of range": "LED_BRIGHTNESS=256",
		"not a number":     "SAMPLE_COUNT=ten",
		"bad bool":         "SENSOR_MOCK=maybe",
		"address too wide": "DISPLAY_I2C_ADDR=0x1FF",
		"window inverted":  "RAW_MIN=5000\nRAW_MAX=4000",
		"empty broker":     "MQTT_BROKER=",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

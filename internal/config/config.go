package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientID        string
	MQTTClientIDConsole string

	// Topics
	TopicMeasurement string
	TopicCalibration string

	// Sensor hardware
	SensorI2CBus  string // "" selects the first available bus
	SensorI2CAddr uint16
	SensorMock    bool

	// Display
	DisplayEnabled bool
	DisplayI2CAddr uint16

	// Serial command shell ("" disables it)
	SerialPort     string
	SerialBaudRate int

	// Storage
	StorePath     string
	LogMaxEntries int

	// Web Server
	WebServerPort int

	// Timing
	TickInterval int // milliseconds
	SampleDelay  int // milliseconds
	WarmupTime   int // seconds

	// Sampling
	SampleCount   int
	RawMin        uint32
	RawMax        uint32
	PresenceDelta uint32
	BaselineIR    uint32

	// Measurement
	LEDBrightness      int
	LegacyIntersection int
	LegacyDeviation    float64
	RatioMode          bool
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for every key the file omits.
func Default() *Config {
	return &Config{
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientID:        "roast-meter",
		MQTTClientIDConsole: "roast-meter-console",

		TopicMeasurement: "roast/measurement",
		TopicCalibration: "roast/calibration",

		SensorI2CAddr: 0x57,

		DisplayEnabled: true,
		DisplayI2CAddr: 0x3C,

		SerialBaudRate: 115200,

		StorePath:     "roast_meter.db",
		LogMaxEntries: 65000,

		WebServerPort: 8080,

		TickInterval: 100,
		SampleDelay:  10,
		WarmupTime:   60,

		SampleCount:   10,
		RawMin:        1000,
		RawMax:        500000,
		PresenceDelta: 100,
		BaselineIR:    30000,

		LEDBrightness:      95,
		LegacyIntersection: 117,
		LegacyDeviation:    0.165,
		RatioMode:          true,
	}
}

// Load reads the configuration file and returns a Config struct. Keys
// missing from the file keep their Default value.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// intInRange parses value as an integer within [min, max].
func intInRange(key, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, v)
	}
	return v, nil
}

func parseAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 7)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return uint16(addr), nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	var n int

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_MEASUREMENT":
		c.TopicMeasurement = value
	case "TOPIC_CALIBRATION":
		c.TopicCalibration = value

	// Sensor hardware
	case "SENSOR_I2C_BUS":
		c.SensorI2CBus = value
	case "SENSOR_I2C_ADDR":
		c.SensorI2CAddr, err = parseAddr(key, value)
	case "SENSOR_MOCK":
		c.SensorMock, err = parseBool(key, value)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_ADDR":
		c.DisplayI2CAddr, err = parseAddr(key, value)

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = intInRange(key, value, 300, 4000000)

	// Storage
	case "STORE_PATH":
		c.StorePath = value
	case "LOG_MAX_ENTRIES":
		c.LogMaxEntries, err = intInRange(key, value, 1, 10000000)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = intInRange(key, value, 0, 65535)

	// Timing
	case "TICK_INTERVAL":
		c.TickInterval, err = intInRange(key, value, 1, 60000)
	case "SAMPLE_DELAY":
		c.SampleDelay, err = intInRange(key, value, 0, 1000)
	case "WARMUP_TIME":
		c.WarmupTime, err = intInRange(key, value, 0, 600)

	// Sampling
	case "SAMPLE_COUNT":
		c.SampleCount, err = intInRange(key, value, 1, 100)
	case "RAW_MIN":
		n, err = intInRange(key, value, 0, 1<<18)
		c.RawMin = uint32(n)
	case "RAW_MAX":
		n, err = intInRange(key, value, 1, 1<<20)
		c.RawMax = uint32(n)
	case "PRESENCE_DELTA":
		n, err = intInRange(key, value, 0, 1<<18)
		c.PresenceDelta = uint32(n)
	case "BASELINE_IR":
		n, err = intInRange(key, value, 0, 1<<20)
		c.BaselineIR = uint32(n)

	// Measurement
	case "LED_BRIGHTNESS":
		c.LEDBrightness, err = intInRange(key, value, 0, 255)
	case "LEGACY_INTERSECTION":
		c.LegacyIntersection, err = intInRange(key, value, 0, 1000)
	case "LEGACY_DEVIATION":
		c.LegacyDeviation, err = strconv.ParseFloat(value, 64)
		if err != nil {
			err = fmt.Errorf("invalid LEGACY_DEVIATION %q: %w", value, err)
		}
	case "RATIO_MODE":
		c.RatioMode, err = parseBool(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.StorePath == "" {
		return fmt.Errorf("STORE_PATH is required")
	}
	if c.RawMin >= c.RawMax {
		return fmt.Errorf("RAW_MIN (%d) must be below RAW_MAX (%d)", c.RawMin, c.RawMax)
	}
	if c.TopicMeasurement == "" || c.TopicCalibration == "" {
		return fmt.Errorf("TOPIC_MEASUREMENT and TOPIC_CALIBRATION are required")
	}
	return nil
}

// TickPeriod returns TickInterval as a duration.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.TickInterval) * time.Millisecond
}

// SampleDelayDuration returns SampleDelay as a duration.
func (c *Config) SampleDelayDuration() time.Duration {
	return time.Duration(c.SampleDelay) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

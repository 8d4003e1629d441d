// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Snapshot modes for ORIENTATION_SNAPSHOT.
const (
	SnapshotAtAnalysis = "analysis"
	SnapshotAtCapture  = "capture"
)

// Magnetometer modes for MAGNETOMETER.
const (
	MagnetometerAuto = "auto"
	MagnetometerOff  = "off"
)

// Magnetometer hardware for IMU_MAGNETOMETER.
const (
	IMUMagnetometerNone    = "none"
	IMUMagnetometerHMC5983 = "hmc5983"
)

// Detection backends for DETECT_BACKEND.
const (
	BackendNative = "native"
	BackendOpenCV = "opencv"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDLocator string
	MQTTClientIDIMU     string
	MQTTClientIDGPS     string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string
	MQTTClientIDMag     string

	// Topics
	TopicIMU      string
	TopicGPS      string
	TopicEstimate string
	TopicCapture  string

	// Camera geometry (degrees)
	CameraFOVHorizontal float64
	CameraFOVVertical   float64

	// Orientation filter
	FilterAlpha         float64
	Magnetometer        string // "auto" or "off"
	OrientationSnapshot string // "analysis" or "capture"

	// Detection tuning
	DetectThresholdRatio  float64
	DetectMinArea         float64
	DetectMinCircularity  float64
	DetectProximityFactor float64
	DetectMinPeak         int // 0-255
	LogContours           bool
	AnnotateDir           string
	DetectBackend         string // "native" or "opencv"

	// Reporting
	DeviceID          string
	ReportHTTPURL     string
	ReportHTTPTimeout int // milliseconds

	// Web Server
	WebServerPort int

	// IMU Hardware
	IMUSPIDevice      string
	IMUCSPin          string
	IMUAccelRange     byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUSampleInterval int  // milliseconds
	IMUMock           bool
	IMUMagnetometer   string // "none" or "hmc5983"

	// HMC5983 magnetometer
	MagI2CBus  string // periph bus name, empty for the first bus
	MagI2CAddr uint16

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Display
	DisplayI2CBus         string // periph bus name, empty for the first bus
	DisplayUpdateInterval int    // milliseconds
}

// Package-level singleton. InitGlobal sets it once, Get reads it under RLock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional key filled in.
func Default() *Config {
	return &Config{
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDLocator: "sky-locator",
		MQTTClientIDIMU:     "sky-imu-producer",
		MQTTClientIDGPS:     "sky-gps-producer",
		MQTTClientIDConsole: "sky-console",
		MQTTClientIDDisplay: "sky-display",
		MQTTClientIDMag:     "sky-mag-producer",

		TopicIMU:      "sky/imu",
		TopicGPS:      "sky/gps",
		TopicEstimate: "sky/estimate",
		TopicCapture:  "sky/capture",

		CameraFOVHorizontal: 60,
		CameraFOVVertical:   45,

		FilterAlpha:         0.8,
		Magnetometer:        MagnetometerAuto,
		OrientationSnapshot: SnapshotAtAnalysis,

		DetectThresholdRatio:  0.8,
		DetectMinArea:         100,
		DetectMinCircularity:  0.6,
		DetectProximityFactor: 2,
		DetectMinPeak:         50,
		DetectBackend:         BackendNative,

		ReportHTTPTimeout: 10000,

		WebServerPort: 8080,

		IMUSPIDevice:      "/dev/spidev0.0",
		IMUCSPin:          "8",
		IMUSampleInterval: 50,
		IMUMagnetometer:   IMUMagnetometerNone,

		MagI2CAddr: 0x1E,

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
// Keys missing from the file keep their Default values.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of Default.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

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

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_LOCATOR":
		c.MQTTClientIDLocator = value
	case "MQTT_CLIENT_ID_IMU":
		c.MQTTClientIDIMU = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_MAG":
		c.MQTTClientIDMag = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_ESTIMATE":
		c.TopicEstimate = value
	case "TOPIC_CAPTURE":
		c.TopicCapture = value

	// Camera geometry
	case "CAMERA_FOV_H":
		c.CameraFOVHorizontal, err = parseFloat(key, value, 0, 180, false)
	case "CAMERA_FOV_V":
		c.CameraFOVVertical, err = parseFloat(key, value, 0, 180, false)

	// Orientation filter
	case "FILTER_ALPHA":
		c.FilterAlpha, err = parseFloat(key, value, 0, 1, true)
		if err == nil && c.FilterAlpha >= 1 {
			err = fmt.Errorf("FILTER_ALPHA must be < 1, got %v", c.FilterAlpha)
		}
	case "MAGNETOMETER":
		switch value {
		case MagnetometerAuto, MagnetometerOff:
			c.Magnetometer = value
		default:
			return fmt.Errorf("MAGNETOMETER must be %q or %q, got %q", MagnetometerAuto, MagnetometerOff, value)
		}
	case "ORIENTATION_SNAPSHOT":
		switch value {
		case SnapshotAtAnalysis, SnapshotAtCapture:
			c.OrientationSnapshot = value
		default:
			return fmt.Errorf("ORIENTATION_SNAPSHOT must be %q or %q, got %q", SnapshotAtAnalysis, SnapshotAtCapture, value)
		}

	// Detection tuning
	case "DETECT_THRESHOLD_RATIO":
		c.DetectThresholdRatio, err = parseFloat(key, value, 0, 1, false)
	case "DETECT_MIN_AREA":
		c.DetectMinArea, err = parseFloat(key, value, 0, 1e9, true)
	case "DETECT_MIN_CIRCULARITY":
		c.DetectMinCircularity, err = parseFloat(key, value, 0, 1, true)
	case "DETECT_PROXIMITY_FACTOR":
		c.DetectProximityFactor, err = parseFloat(key, value, 0, 1e3, false)
	case "DETECT_MIN_PEAK":
		c.DetectMinPeak, err = parseInt(key, value)
		if err == nil && (c.DetectMinPeak < 0 || c.DetectMinPeak > 255) {
			err = fmt.Errorf("DETECT_MIN_PEAK must be 0-255, got %d", c.DetectMinPeak)
		}
	case "LOG_CONTOURS":
		c.LogContours, err = parseBool(key, value)
	case "ANNOTATE_DIR":
		c.AnnotateDir = value
	case "DETECT_BACKEND":
		switch value {
		case BackendNative, BackendOpenCV:
			c.DetectBackend = value
		default:
			return fmt.Errorf("DETECT_BACKEND must be %q or %q, got %q", BackendNative, BackendOpenCV, value)
		}

	// Reporting
	case "DEVICE_ID":
		c.DeviceID = value
	case "REPORT_HTTP_URL":
		c.ReportHTTPURL = value
	case "REPORT_HTTP_TIMEOUT_MS":
		c.ReportHTTPTimeout, err = parseInt(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = parseInt(key, value)
	case "IMU_MOCK":
		c.IMUMock, err = parseBool(key, value)
	case "IMU_MAGNETOMETER":
		switch value {
		case IMUMagnetometerNone, IMUMagnetometerHMC5983:
			c.IMUMagnetometer = value
		default:
			return fmt.Errorf("IMU_MAGNETOMETER must be %q or %q, got %q", IMUMagnetometerNone, IMUMagnetometerHMC5983, value)
		}

	// HMC5983 magnetometer
	case "MAG_I2C_BUS":
		c.MagI2CBus = value
	case "MAG_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid MAG_I2C_ADDR %q: %w", value, err)
		}
		c.MagI2CAddr = uint16(addr)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// parseFloat parses value and checks it lies in (lo, hi], or [lo, hi] when
// inclusiveLo is set.
func parseFloat(key, value string, lo, hi float64, inclusiveLo bool) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v > hi || v < lo || (!inclusiveLo && v == lo) {
		return 0, fmt.Errorf("%s out of range (%v..%v), got %v", key, lo, hi, v)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.CameraFOVHorizontal >= 180 || c.CameraFOVVertical >= 180 {
		return fmt.Errorf("camera FOV must be below 180 degrees")
	}
	if c.IMUSampleInterval <= 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL must be positive")
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive")
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	return nil
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

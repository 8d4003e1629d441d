// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

// Kind identifies which sensor produced a Sample.
type Kind int

const (
	Accelerometer Kind = iota + 1
	Magnetometer
)

func (k Kind) String() string {
	switch k {
	case Accelerometer:
		return "accelerometer"
	case Magnetometer:
		return "magnetometer"
	default:
		return "unknown"
	}
}

// Sample is one 3-axis reading in device coordinates.
// Accelerometer samples are in m/s², magnetometer samples in µT.
type Sample struct {
	Kind Kind
	X    float64
	Y    float64
	Z    float64
	Time time.Time
}

// Orientation is the device attitude derived from filtered gravity and
// geomagnetic vectors.
type Orientation struct {
	AzimuthDeg float64   `json:"azimuth"` // [0, 360)
	PitchDeg   float64   `json:"pitch"`
	RollDeg    float64   `json:"roll"`
	Time       time.Time `json:"time"`

	// AzimuthReliable is false while running without a magnetometer;
	// AzimuthDeg is then 0.
	AzimuthReliable bool `json:"azimuth_reliable"`
}

// Source is anything that can provide sensor samples over time:
// a real IMU, a mock, or a replay.
type Source interface {
	Next() ([]Sample, error)
	HasMagnetometer() bool
}

// Normalize360 wraps deg into [0, 360).
func Normalize360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -1e-14 + 360 rounds to 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }

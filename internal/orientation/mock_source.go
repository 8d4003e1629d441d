// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

// Geomagnetic field used by the mock source, roughly mid-latitude (µT).
const (
	mockFieldHorizontal = 22.0
	mockFieldVertical   = 42.0
)

type mockSource struct {
	start time.Time
}

// NewMockSource creates a mock sensor source whose attitude sweeps slowly
// around the horizon while nodding up and down.
func NewMockSource() Source {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) Next() ([]Sample, error) {
	now := time.Now()
	elapsed := now.Sub(m.start).Seconds()

	azimuth := math.Mod(elapsed*10, 360)
	pitch := 15 * math.Sin(elapsed*0.3)
	return SyntheticSamples(azimuth, pitch, now), nil
}

func (m *mockSource) HasMagnetometer() bool { return true }

// SyntheticSamples returns the accelerometer and magnetometer readings a
// device with zero roll would report at the given azimuth and pitch.
func SyntheticSamples(azimuthDeg, pitchDeg float64, t time.Time) []Sample {
	a := radians(azimuthDeg)
	// Positive pitch means the top edge is tilted down.
	e := radians(-pitchDeg)

	// Device axes in world (east, north, up) coordinates.
	x := [3]float64{math.Cos(a), -math.Sin(a), 0}
	y := [3]float64{math.Sin(a) * math.Cos(e), math.Cos(a) * math.Cos(e), math.Sin(e)}
	z := [3]float64{-math.Sin(a) * math.Sin(e), -math.Cos(a) * math.Sin(e), math.Cos(e)}

	up := [3]float64{0, 0, standardGravity}
	field := [3]float64{0, mockFieldHorizontal, -mockFieldVertical}

	dot := func(u, v [3]float64) float64 { return u[0]*v[0] + u[1]*v[1] + u[2]*v[2] }

	return []Sample{
		{Kind: Accelerometer, X: dot(x, up), Y: dot(y, up), Z: dot(z, up), Time: t},
		{Kind: Magnetometer, X: dot(x, field), Y: dot(y, field), Z: dot(z, field), Time: t},
	}
}

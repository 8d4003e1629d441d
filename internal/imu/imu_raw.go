// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"time"

	"github.com/relabs-tech/sky_locator/internal/orientation"
)

// IMURaw is one IMU reading as published on the IMU topic.
// Acceleration is in m/s², magnetic field in µT.
type IMURaw struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`

	Ax      float64 `json:"ax"` // accel
	Ay      float64 `json:"ay"`
	Az      float64 `json:"az"`
	AccelOK bool    `json:"accel_ok"`

	Mx    float64 `json:"mx"` // magnetometer
	My    float64 `json:"my"`
	Mz    float64 `json:"mz"`
	MagOK bool    `json:"mag_ok"`
}

// Samples splits the reading into filter samples. Each sensor's sample is
// only included when the producer read that sensor, so a magnetometer-only
// reading leaves the gravity estimate alone.
func (r IMURaw) Samples() []orientation.Sample {
	var out []orientation.Sample
	if r.AccelOK {
		out = append(out, orientation.Sample{
			Kind: orientation.Accelerometer,
			X:    r.Ax,
			Y:    r.Ay,
			Z:    r.Az,
			Time: r.Time,
		})
	}
	if r.MagOK {
		out = append(out, orientation.Sample{
			Kind: orientation.Magnetometer,
			X:    r.Mx,
			Y:    r.My,
			Z:    r.Mz,
			Time: r.Time,
		})
	}
	return out
}

// FromSamples packs samples read from a Source into one IMURaw.
func FromSamples(source string, samples []orientation.Sample) IMURaw {
	r := IMURaw{Source: source}
	for _, s := range samples {
		if r.Time.IsZero() || s.Time.After(r.Time) {
			r.Time = s.Time
		}
		switch s.Kind {
		case orientation.Accelerometer:
			r.Ax, r.Ay, r.Az = s.X, s.Y, s.Z
			r.AccelOK = true
		case orientation.Magnetometer:
			r.Mx, r.My, r.Mz = s.X, s.Y, s.Z
			r.MagOK = true
		}
	}
	return r
}

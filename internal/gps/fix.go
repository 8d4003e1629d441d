// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time        string  `json:"time"`        // e.g. "12:34:56.0000"
	Date        string  `json:"date"`        // e.g. "06/12/25"
	Latitude    float64 `json:"lat"`         // decimal degrees
	Longitude   float64 `json:"lon"`         // decimal degrees
	Altitude    float64 `json:"alt"`         // meters above mean sea level
	HasAltitude bool    `json:"has_alt"`     // set once a GGA with a fix was seen
	SpeedKnots  float64 `json:"speed_knots"` // speed over ground
	CourseDeg   float64 `json:"course_deg"`  // course over ground
	Validity    string  `json:"validity"`    // "A" (valid) / "V" (void), etc.
	Quality     string  `json:"quality"`     // GGA fix quality, "0" is no fix
	Satellites  int64   `json:"satellites"`
}

// Valid reports whether the receiver had a position fix.
func (f Fix) Valid() bool {
	return f.Validity == "A"
}

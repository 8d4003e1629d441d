// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"sync/atomic"
	"time"
)

// Location is a last-known geographic position.
type Location struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Altitude    float64   `json:"altitude"`
	HasAltitude bool      `json:"has_altitude"`
	Received    time.Time `json:"received"`
}

// Tracker holds the most recent valid fix. Void fixes are dropped so the
// last good position survives a temporary loss of signal.
type Tracker struct {
	last atomic.Pointer[Location]
}

// Update records f if it is valid and reports whether it was kept.
func (t *Tracker) Update(f Fix, received time.Time) bool {
	if !f.Valid() {
		return false
	}
	t.last.Store(&Location{
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		Altitude:    f.Altitude,
		HasAltitude: f.HasAltitude,
		Received:    received,
	})
	return true
}

// Last returns the last known location, or false if none was seen.
func (t *Tracker) Last() (Location, bool) {
	p := t.last.Load()
	if p == nil {
		return Location{}, false
	}
	return *p, true
}

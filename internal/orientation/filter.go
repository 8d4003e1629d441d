// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/sky_locator/internal/metrics"
)

// DefaultAlpha is the low-pass smoothing coefficient applied per axis:
// filtered = alpha*filtered + (1-alpha)*raw.
const DefaultAlpha = 0.8

// Filter fuses accelerometer and magnetometer samples into an Orientation.
//
// Update may be called from a sensor goroutine while Current is called from
// any number of readers. Each derived Orientation is published as a whole
// through a single-slot cell, so readers never see a half-written triple.
type Filter struct {
	alpha float64

	mu          sync.Mutex
	gravity     r3.Vec
	geomagnetic r3.Vec
	noMag       bool

	latest atomic.Pointer[Orientation]
}

// NewFilter returns a Filter with the given smoothing coefficient.
// Values outside [0, 1) fall back to DefaultAlpha.
func NewFilter(alpha float64) *Filter {
	if alpha < 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &Filter{alpha: alpha}
}

// SetMagnetometerAvailable switches between full fusion and the degraded
// gravity-only mode, where pitch and roll are still derived but azimuth is
// reported as unreliable.
func (f *Filter) SetMagnetometerAvailable(ok bool) {
	f.mu.Lock()
	f.noMag = !ok
	f.mu.Unlock()
}

// MagnetometerAvailable reports whether the filter expects magnetometer samples.
func (f *Filter) MagnetometerAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.noMag
}

// Update folds s into the matching filtered vector and, once both vectors
// are warmed up, recomputes the orientation. It reports whether a new
// Orientation was published. Degenerate geometry keeps the previous value.
func (f *Filter) Update(s Sample) bool {
	raw := r3.Vec{X: s.X, Y: s.Y, Z: s.Z}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch s.Kind {
	case Accelerometer:
		f.gravity = f.smooth(f.gravity, raw)
	case Magnetometer:
		f.geomagnetic = f.smooth(f.geomagnetic, raw)
	default:
		return false
	}

	if !nonZero(f.gravity) {
		return false
	}

	var o Orientation
	if f.noMag {
		pitch, roll, ok := tiltFrom(f.gravity)
		if !ok {
			metrics.DegenerateRotations.Inc()
			return false
		}
		o = Orientation{PitchDeg: pitch, RollDeg: roll}
	} else {
		if !nonZero(f.geomagnetic) {
			return false
		}
		rot, ok := rotationFrom(f.gravity, f.geomagnetic)
		if !ok {
			metrics.DegenerateRotations.Inc()
			return false
		}
		az, pitch, roll := rot.angles()
		o = Orientation{AzimuthDeg: az, PitchDeg: pitch, RollDeg: roll, AzimuthReliable: true}
	}
	o.Time = s.Time

	f.latest.Store(&o)
	metrics.OrientationUpdates.Inc()
	return true
}

// Current returns the latest orientation, or false before the filter has
// produced one.
func (f *Filter) Current() (Orientation, bool) {
	p := f.latest.Load()
	if p == nil {
		return Orientation{}, false
	}
	return *p, true
}

func (f *Filter) smooth(prev, raw r3.Vec) r3.Vec {
	return r3.Add(r3.Scale(f.alpha, prev), r3.Scale(1-f.alpha, raw))
}

// nonZero is the warm-up gate: any non-zero component counts.
func nonZero(v r3.Vec) bool {
	return v.X != 0 || v.Y != 0 || v.Z != 0
}

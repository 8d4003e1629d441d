// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sky turns a detected disk and a device orientation into a
// world-frame azimuth and elevation.
package sky

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned for a field of view or frame size that
// cannot be projected.
var ErrInvalidGeometry = errors.New("invalid camera geometry")

// Geometry is the fixed camera calibration.
type Geometry struct {
	FOVHorizontalDeg float64 `json:"fov_horizontal"`
	FOVVerticalDeg   float64 `json:"fov_vertical"`
}

// DefaultGeometry is a typical phone main camera in landscape.
func DefaultGeometry() Geometry {
	return Geometry{FOVHorizontalDeg: 60, FOVVerticalDeg: 45}
}

// Validate checks that both fields of view lie in (0, 180).
func (g Geometry) Validate() error {
	if !(g.FOVHorizontalDeg > 0 && g.FOVHorizontalDeg < 180) {
		return fmt.Errorf("%w: horizontal fov %v", ErrInvalidGeometry, g.FOVHorizontalDeg)
	}
	if !(g.FOVVerticalDeg > 0 && g.FOVVerticalDeg < 180) {
		return fmt.Errorf("%w: vertical fov %v", ErrInvalidGeometry, g.FOVVerticalDeg)
	}
	return nil
}

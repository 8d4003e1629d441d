// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	standardGravity = 9.80665

	// Below 10% of g the device is treated as in free fall.
	freeFallGravitySquared = 0.01 * standardGravity * standardGravity

	// Minimum |geomagnetic × gravity|. Smaller values mean the two vectors are
	// (anti-)parallel and the horizontal plane is undefined.
	minHorizontalNorm = 0.1
)

// rotation holds the rows of the device-to-world rotation matrix:
// world east, north and up expressed in device coordinates.
type rotation struct {
	east, north, up r3.Vec
}

// rotationFrom builds the rotation from gravity and geomagnetic vectors.
// It reports false for degenerate inputs (free fall, or the two vectors
// collinear).
func rotationFrom(gravity, geomagnetic r3.Vec) (rotation, bool) {
	if r3.Dot(gravity, gravity) < freeFallGravitySquared {
		return rotation{}, false
	}

	h := r3.Cross(geomagnetic, gravity)
	normH := r3.Norm(h)
	if normH < minHorizontalNorm {
		return rotation{}, false
	}

	east := r3.Scale(1/normH, h)
	up := r3.Unit(gravity)
	north := r3.Cross(up, east)

	return rotation{east: east, north: north, up: up}, true
}

// angles returns azimuth, pitch and roll in degrees. Azimuth is normalized.
func (r rotation) angles() (azimuth, pitch, roll float64) {
	azimuth = Normalize360(degrees(math.Atan2(r.east.Y, r.north.Y)))
	pitch = degrees(math.Asin(clamp(-r.up.Y, -1, 1)))
	roll = degrees(math.Atan2(-r.up.X, r.up.Z))
	return azimuth, pitch, roll
}

// tiltFrom derives pitch and roll from gravity alone, using the same
// conventions as rotation.angles.
func tiltFrom(gravity r3.Vec) (pitch, roll float64, ok bool) {
	if r3.Dot(gravity, gravity) < freeFallGravitySquared {
		return 0, 0, false
	}
	up := r3.Unit(gravity)
	pitch = degrees(math.Asin(clamp(-up.Y, -1, 1)))
	roll = degrees(math.Atan2(-up.X, up.Z))
	return pitch, roll, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

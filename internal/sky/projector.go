// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sky

import (
	"fmt"
	"math"

	"github.com/relabs-tech/sky_locator/internal/vision"
)

// Offsets are angles of the disk from the optical axis, in the camera frame.
// Positive horizontal is right of center, positive vertical is below center.
type Offsets struct {
	HorizontalDeg float64 `json:"h_offset"`
	VerticalDeg   float64 `json:"v_offset"`
}

// Project converts the disk center into angular offsets using a pinhole
// model: the field of view defines an equivalent focal length in pixels.
func Project(disk vision.Disk, width, height int, g Geometry) (Offsets, error) {
	if err := g.Validate(); err != nil {
		return Offsets{}, err
	}
	if width <= 0 || height <= 0 {
		return Offsets{}, fmt.Errorf("%w: frame %dx%d", ErrInvalidGeometry, width, height)
	}

	return Offsets{
		HorizontalDeg: axisOffset(disk.CenterX, float64(width), g.FOVHorizontalDeg),
		VerticalDeg:   axisOffset(disk.CenterY, float64(height), g.FOVVerticalDeg),
	}, nil
}

func axisOffset(px, dim, fovDeg float64) float64 {
	half := dim / 2
	focal := half / math.Tan(fovDeg/2*math.Pi/180)
	return math.Atan2(px-half, focal) * 180 / math.Pi
}

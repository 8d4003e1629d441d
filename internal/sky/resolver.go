// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sky

import (
	"github.com/relabs-tech/sky_locator/internal/orientation"
	"github.com/relabs-tech/sky_locator/internal/vision"
)

// Undetected marks both angles of an estimate without a disk. It is outside
// the azimuth range but not the elevation range, so check Detected.
const Undetected = -1.0

// Estimate is the world-frame position of the object for one frame.
type Estimate struct {
	Detected     bool    `json:"detected"`
	AzimuthDeg   float64 `json:"azimuth"`
	ElevationDeg float64 `json:"elevation"`

	// Roll is carried for diagnostics only; it is not applied to the angles.
	DeviceRollDeg float64 `json:"device_roll"`
}

// Resolve combines the device orientation with camera-frame offsets.
// It is a pure function of its arguments.
func Resolve(disk *vision.Disk, o orientation.Orientation, off Offsets) Estimate {
	if disk == nil {
		return Estimate{
			AzimuthDeg:    Undetected,
			ElevationDeg:  Undetected,
			DeviceRollDeg: o.RollDeg,
		}
	}
	return Estimate{
		Detected:      true,
		AzimuthDeg:    orientation.Normalize360(o.AzimuthDeg + off.HorizontalDeg),
		ElevationDeg:  o.PitchDeg - off.VerticalDeg,
		DeviceRollDeg: o.RollDeg,
	}
}

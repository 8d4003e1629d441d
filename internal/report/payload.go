// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package report builds and delivers the per-frame estimate payload.
package report

import (
	"errors"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/sky_locator/internal/gps"
	"github.com/relabs-tech/sky_locator/internal/orientation"
	"github.com/relabs-tech/sky_locator/internal/sky"
)

// ErrNothingToSend is returned by Build when there is neither a location
// nor a detected object.
var ErrNothingToSend = errors.New("no valid data to send")

// Payload is the key-value record sent to the collection server.
// Field names follow the server's existing camelCase contract.
type Payload struct {
	Timestamp int64  `json:"timestamp"` // ms since epoch
	DeviceID  string `json:"deviceId"`
	CaptureID string `json:"captureId"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`

	DeviceAzimuth   float64 `json:"deviceAzimuth"`
	DevicePitch     float64 `json:"devicePitch"`
	DeviceRoll      float64 `json:"deviceRoll"`
	AzimuthReliable bool    `json:"azimuthReliable"`

	ObjectWorldAzimuth   *float64 `json:"objectWorldAzimuth,omitempty"`
	ObjectWorldElevation *float64 `json:"objectWorldElevation,omitempty"`

	CameraFOVHorizontal float64 `json:"cameraFovHorizontal"`
	CameraFOVVertical   float64 `json:"cameraFovVertical"`
}

// Input gathers everything known about one processed frame.
type Input struct {
	Time        time.Time
	DeviceID    string
	CaptureID   string
	Location    *gps.Location
	Orientation orientation.Orientation
	Estimate    sky.Estimate
	Geometry    sky.Geometry
}

// Build assembles the payload for in. Location and object fields are
// omitted when unknown.
func Build(in Input) (Payload, error) {
	if in.Location == nil && !in.Estimate.Detected {
		return Payload{}, ErrNothingToSend
	}

	p := Payload{
		Timestamp:           in.Time.UnixMilli(),
		DeviceID:            in.DeviceID,
		CaptureID:           in.CaptureID,
		DeviceAzimuth:       in.Orientation.AzimuthDeg,
		DevicePitch:         in.Orientation.PitchDeg,
		DeviceRoll:          in.Orientation.RollDeg,
		AzimuthReliable:     in.Orientation.AzimuthReliable,
		CameraFOVHorizontal: in.Geometry.FOVHorizontalDeg,
		CameraFOVVertical:   in.Geometry.FOVVerticalDeg,
	}
	if p.CaptureID == "" {
		p.CaptureID = uuid.NewString()
	}

	if loc := in.Location; loc != nil {
		p.Latitude = ptr(loc.Latitude)
		p.Longitude = ptr(loc.Longitude)
		if loc.HasAltitude {
			p.Altitude = ptr(loc.Altitude)
		}
	}

	if in.Estimate.Detected {
		p.ObjectWorldAzimuth = ptr(in.Estimate.AzimuthDeg)
		p.ObjectWorldElevation = ptr(in.Estimate.ElevationDeg)
	}
	return p, nil
}

func ptr(v float64) *float64 { return &v }

// DeviceID picks the identifier sent with every payload: the configured
// value, else the host name, else a random UUID.
func DeviceID(configured string) string {
	if configured != "" {
		return configured
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sky_locator/internal/orientation"
)

func TestFromSamplesAndBack(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := orientation.SyntheticSamples(45, 10, now)

	raw := FromSamples("mock", in)
	assert.True(t, raw.AccelOK)
	assert.True(t, raw.MagOK)
	assert.Equal(t, now, raw.Time)

	if diff := cmp.Diff(in, raw.Samples()); diff != "" {
		t.Errorf("Samples() mismatch (-want +got):\n%s", diff)
	}
}

func TestSamplesWithoutMagnetometer(t *testing.T) {
	raw := IMURaw{Source: "left", Ax: 0.1, Ay: 0.2, Az: 9.8, AccelOK: true, Mx: 5}

	samples := raw.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, orientation.Accelerometer, samples[0].Kind)
	assert.Equal(t, 9.8, samples[0].Z)
}

func TestMagnetometerOnlyReading(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	samples := orientation.SyntheticSamples(45, 10, now)

	raw := FromSamples("hmc5983", samples[1:])
	assert.False(t, raw.AccelOK)
	assert.True(t, raw.MagOK)

	got := raw.Samples()
	require.Len(t, got, 1)
	assert.Equal(t, orientation.Magnetometer, got[0].Kind, "no zero accelerometer sample is made up")
}

func TestIMURawWireFormat(t *testing.T) {
	var raw IMURaw
	payload := `{"source":"left","time":"2026-03-01T12:00:00Z","ax":1,"ay":2,"az":3,"accel_ok":true,"mx":4,"my":5,"mz":6,"mag_ok":true}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	assert.Equal(t, "left", raw.Source)
	assert.Equal(t, 3.0, raw.Az)
	assert.True(t, raw.AccelOK)
	assert.Equal(t, 6.0, raw.Mz)
	assert.True(t, raw.MagOK)
}

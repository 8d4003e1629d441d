// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rmcValid = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	ggaFix   = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	rmcVoid  = "$GPRMC,123520,V,4807.038,N,01131.000,E,000.0,000.0,230394,003.1,W*7B"
	ggaNoFix = "$GPGGA,123520,4807.038,N,01131.000,E,0,00,99.9,545.4,M,46.9,M,,*74"
)

func TestAccumulatorCombinesGGAAndRMC(t *testing.T) {
	var acc Accumulator

	_, ready, err := acc.Feed(ggaFix)
	require.NoError(t, err)
	assert.False(t, ready, "GGA alone does not complete a fix")

	fix, ready, err := acc.Feed(rmcValid + "\r\n")
	require.NoError(t, err)
	require.True(t, ready)

	assert.True(t, fix.Valid())
	assert.InDelta(t, 48.1173, fix.Latitude, 1e-4)
	assert.InDelta(t, 11.516667, fix.Longitude, 1e-4)
	assert.InDelta(t, 545.4, fix.Altitude, 1e-9)
	assert.True(t, fix.HasAltitude)
	assert.Equal(t, int64(8), fix.Satellites)
	assert.Equal(t, "1", fix.Quality)
	assert.InDelta(t, 22.4, fix.SpeedKnots, 1e-9)
	assert.Contains(t, fix.Time, "12:35:19")
}

func TestAccumulatorNoFixKeepsAltitude(t *testing.T) {
	var acc Accumulator
	for _, line := range []string{ggaFix, ggaNoFix} {
		_, _, err := acc.Feed(line)
		require.NoError(t, err)
	}

	fix, ready, err := acc.Feed(rmcVoid)
	require.NoError(t, err)
	require.True(t, ready)
	assert.False(t, fix.Valid())
	assert.Equal(t, "0", fix.Quality)
	assert.InDelta(t, 545.4, fix.Altitude, 1e-9, "altitude from the last GGA with a fix")
}

func TestAccumulatorIgnoresNoise(t *testing.T) {
	var acc Accumulator
	for _, line := range []string{"", "   ", "garbage", "\x00\x01"} {
		_, ready, err := acc.Feed(line)
		assert.NoError(t, err)
		assert.False(t, ready)
	}

	_, _, err := acc.Feed("$GPRMC,broken*00")
	assert.Error(t, err)
}

func TestTrackerKeepsLastValid(t *testing.T) {
	var tr Tracker
	_, ok := tr.Last()
	assert.False(t, ok)

	var acc Accumulator
	valid, _, err := acc.Feed(rmcValid)
	require.NoError(t, err)
	void, _, err := acc.Feed(rmcVoid)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, tr.Update(valid, now))
	assert.False(t, tr.Update(void, now.Add(time.Second)))

	loc, ok := tr.Last()
	require.True(t, ok)
	assert.InDelta(t, 48.1173, loc.Latitude, 1e-4)
	assert.False(t, loc.HasAltitude)
	assert.Equal(t, now, loc.Received)
}

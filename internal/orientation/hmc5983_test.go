// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func hmcInitOps(addr uint16) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{0x0A}, R: []byte("H43")},
		{Addr: addr, W: []byte{0x00, 0x70, 0x20, 0x00}},
	}
}

func TestHMC5983Sense(t *testing.T) {
	bus := &i2ctest.Playback{Ops: append(hmcInitOps(HMC5983DefaultAddr),
		// X=1090, Z=-545, Y=218
		i2ctest.IO{Addr: HMC5983DefaultAddr, W: []byte{0x03}, R: []byte{0x04, 0x42, 0xFD, 0xDF, 0x00, 0xDA}},
	)}

	hmc, err := NewHMC5983(bus, HMC5983DefaultAddr)
	require.NoError(t, err)

	x, y, z, err := hmc.Sense()
	require.NoError(t, err)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 20, y, 1e-9)
	assert.InDelta(t, -50, z, 1e-9)
	assert.NoError(t, bus.Close())
}

func TestHMC5983WrongID(t *testing.T) {
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: 0x1F, W: []byte{0x0A}, R: []byte("MPU")},
	}}

	_, err := NewHMC5983(bus, 0x1F)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected ID")
}

func TestHMC5983Overflow(t *testing.T) {
	bus := &i2ctest.Playback{Ops: append(hmcInitOps(HMC5983DefaultAddr),
		i2ctest.IO{Addr: HMC5983DefaultAddr, W: []byte{0x03}, R: []byte{0x00, 0x10, 0xF0, 0x00, 0x00, 0x10}},
	)}

	hmc, err := NewHMC5983(bus, HMC5983DefaultAddr)
	require.NoError(t, err)

	src := &hmcSource{hmc: hmc}
	_, err = src.Next()
	assert.ErrorIs(t, err, ErrMagOverflow)
}

func TestHMC5983BusError(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}

	_, err := NewHMC5983(bus, HMC5983DefaultAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HMC: read ID")
}

type accelOnlySource struct {
	err error
}

func (s accelOnlySource) Next() ([]Sample, error) {
	if s.err != nil {
		return nil, s.err
	}
	return SyntheticSamples(90, 0, time.Now())[:1], nil
}

func (s accelOnlySource) HasMagnetometer() bool { return false }

func TestMergeSources(t *testing.T) {
	bus := &i2ctest.Playback{Ops: append(hmcInitOps(HMC5983DefaultAddr),
		i2ctest.IO{Addr: HMC5983DefaultAddr, W: []byte{0x03}, R: []byte{0x00, 0xDA, 0x00, 0x00, 0x00, 0x00}},
	)}
	hmc, err := NewHMC5983(bus, HMC5983DefaultAddr)
	require.NoError(t, err)

	src := Merge(accelOnlySource{}, &hmcSource{hmc: hmc})
	assert.True(t, src.HasMagnetometer())
	assert.False(t, Merge(accelOnlySource{}).HasMagnetometer())

	samples, err := src.Next()
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, Accelerometer, samples[0].Kind)
	assert.Equal(t, Magnetometer, samples[1].Kind)
	assert.InDelta(t, 20, samples[1].X, 1e-9)

	failing := errors.New("spi: timeout")
	_, err = Merge(accelOnlySource{err: failing}, &hmcSource{hmc: hmc}).Next()
	assert.ErrorIs(t, err, failing)
}

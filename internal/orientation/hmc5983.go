// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// HMC5983 registers.
const (
	hmcRegConfigA = 0x00
	hmcRegDataX   = 0x03 // X, Z, Y, big-endian
	hmcRegID      = 0x0A // "H43"

	// 8-sample averaging, 15 Hz output, normal measurement.
	hmcConfigA = 0x70
	// ±1.3 Ga range.
	hmcConfigB = 0x20
	// Continuous measurement.
	hmcModeContinuous = 0x00

	hmcCountsPerGauss = 1090.0
	hmcOverflow       = -4096

	// HMC5983DefaultAddr is the fixed 7-bit I2C address of the part.
	HMC5983DefaultAddr = 0x1E
)

// ErrMagOverflow is returned when an axis saturates the selected range.
var ErrMagOverflow = errors.New("HMC: measurement overflow")

// HMC5983 is a 3-axis magnetometer on an I2C bus.
type HMC5983 struct {
	dev i2c.Dev
}

// NewHMC5983 checks the chip identity and starts continuous measurement.
func NewHMC5983(bus i2c.Bus, addr uint16) (*HMC5983, error) {
	h := &HMC5983{dev: i2c.Dev{Bus: bus, Addr: addr}}

	id := make([]byte, 3)
	if err := h.dev.Tx([]byte{hmcRegID}, id); err != nil {
		return nil, fmt.Errorf("HMC: read ID: %w", err)
	}
	if string(id) != "H43" {
		return nil, fmt.Errorf("HMC: unexpected ID %q at 0x%02X", id, addr)
	}

	// Config A, config B and mode are consecutive; the address auto-increments.
	if err := h.dev.Tx([]byte{hmcRegConfigA, hmcConfigA, hmcConfigB, hmcModeContinuous}, nil); err != nil {
		return nil, fmt.Errorf("HMC: configure: %w", err)
	}
	return h, nil
}

// Sense returns the field in µT along the chip axes.
func (h *HMC5983) Sense() (x, y, z float64, err error) {
	buf := make([]byte, 6)
	if err := h.dev.Tx([]byte{hmcRegDataX}, buf); err != nil {
		return 0, 0, 0, fmt.Errorf("HMC: read data: %w", err)
	}

	rx := int16(binary.BigEndian.Uint16(buf[0:]))
	rz := int16(binary.BigEndian.Uint16(buf[2:]))
	ry := int16(binary.BigEndian.Uint16(buf[4:]))
	if rx == hmcOverflow || ry == hmcOverflow || rz == hmcOverflow {
		return 0, 0, 0, ErrMagOverflow
	}

	// 1 Ga = 100 µT
	const scale = 100 / hmcCountsPerGauss
	return float64(rx) * scale, float64(ry) * scale, float64(rz) * scale, nil
}

type hmcSource struct {
	hmc *HMC5983
}

// NewHMC5983Source opens the named I2C bus (empty for the first one) and
// returns a magnetometer-only Source. The chip must be mounted with its
// axes aligned to the accelerometer's.
func NewHMC5983Source(busName string, addr uint16) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("HMC: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("HMC: open I2C bus %q: %w", busName, err)
	}

	hmc, err := NewHMC5983(bus, addr)
	if err != nil {
		bus.Close()
		return nil, err
	}
	log.Printf("HMC: magnetometer ready on %s at 0x%02X", bus, addr)
	return &hmcSource{hmc: hmc}, nil
}

func (s *hmcSource) Next() ([]Sample, error) {
	x, y, z, err := s.hmc.Sense()
	if err != nil {
		return nil, err
	}
	return []Sample{{Kind: Magnetometer, X: x, Y: y, Z: z, Time: time.Now()}}, nil
}

func (s *hmcSource) HasMagnetometer() bool { return true }

type mergedSource struct {
	srcs []Source
}

// Merge reads every source in turn and returns their samples as one
// reading, so an accelerometer and a separate magnetometer publish together.
func Merge(srcs ...Source) Source {
	return &mergedSource{srcs: srcs}
}

func (m *mergedSource) Next() ([]Sample, error) {
	var out []Sample
	for _, src := range m.srcs {
		samples, err := src.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, samples...)
	}
	return out, nil
}

func (m *mergedSource) HasMagnetometer() bool {
	for _, src := range m.srcs {
		if src.HasMagnetometer() {
			return true
		}
	}
	return false
}

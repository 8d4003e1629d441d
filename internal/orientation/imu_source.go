// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// Accelerometer counts per g for each full-scale range setting.
var countsPerG = [4]float64{16384, 8192, 4096, 2048}

type imuSource struct {
	imu        *mpu9250.MPU9250
	accelScale float64 // m/s² per count
}

// NewIMUSource initializes an MPU9250 over SPI. The driver exposes the
// accelerometer only, so the source reports no magnetometer and callers
// should run the filter in gravity-only mode.
func NewIMUSource(spiDev, csPin string, accelRange byte) (Source, error) {
	if accelRange > 3 {
		return nil, fmt.Errorf("IMU: accel range %d out of 0-3", accelRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange])

	if err := imu.Calibrate(); err != nil {
		log.Printf("IMU: WARNING: calibration failed: %v", err)
	} else {
		log.Println("IMU: calibration complete")
	}

	log.Println("IMU: magnetometer not available, orientation accuracy will be lower")

	return &imuSource{
		imu:        imu,
		accelScale: standardGravity / countsPerG[accelRange],
	}, nil
}

// Next reads one accelerometer sample.
func (s *imuSource) Next() ([]Sample, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return nil, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return nil, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return nil, fmt.Errorf("IMU accel Z: %w", err)
	}

	return []Sample{{
		Kind: Accelerometer,
		X:    float64(ax) * s.accelScale,
		Y:    float64(ay) * s.accelScale,
		Z:    float64(az) * s.accelScale,
		Time: time.Now(),
	}}, nil
}

func (s *imuSource) HasMagnetometer() bool { return false }

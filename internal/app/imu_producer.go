// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sky_locator/internal/config"
	"github.com/relabs-tech/sky_locator/internal/imu"
	"github.com/relabs-tech/sky_locator/internal/orientation"
)

// norm is the magnitude of a 3-axis reading, logged to spot a dead sensor.
func norm(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// RunIMUProducer reads the IMU (or the mock source) every
// IMU_SAMPLE_INTERVAL and publishes IMURaw readings on TOPIC_IMU. With
// IMU_MAGNETOMETER=hmc5983 the HMC5983 is read on the same tick so each
// reading carries both sensors.
func RunIMUProducer() error {
	log.Println("starting sky-locator IMU producer")

	cfg := config.Get()

	// --- Choose sample source (mock vs real IMU) ---
	var (
		src    orientation.Source
		source string
		err    error
	)
	if cfg.IMUMock {
		log.Println("using mock orientation source")
		src, source = orientation.NewMockSource(), "mock"
	} else {
		src, err = orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange)
		if err != nil {
			return err
		}
		source = "mpu9250"

		if cfg.IMUMagnetometer == config.IMUMagnetometerHMC5983 {
			mag, err := orientation.NewHMC5983Source(cfg.MagI2CBus, cfg.MagI2CAddr)
			if err != nil {
				return err
			}
			src, source = orientation.Merge(src, mag), "mpu9250+hmc5983"
		}
	}
	if !src.HasMagnetometer() {
		log.Println("WARNING: no magnetometer on this source, consumers will run gravity-only")
	}

	return publishReadings(cfg, cfg.MQTTClientIDIMU, src, source)
}

// RunHMC5983Producer publishes magnetometer-only readings from an HMC5983
// on TOPIC_IMU, for setups where the accelerometer runs in another process.
func RunHMC5983Producer() error {
	log.Println("starting sky-locator HMC5983 producer")

	cfg := config.Get()
	src, err := orientation.NewHMC5983Source(cfg.MagI2CBus, cfg.MagI2CAddr)
	if err != nil {
		return err
	}
	return publishReadings(cfg, cfg.MQTTClientIDMag, src, "hmc5983")
}

// publishReadings polls src every IMU_SAMPLE_INTERVAL until the process
// exits, publishing each reading as IMURaw.
func publishReadings(cfg *config.Config, clientID string, src orientation.Source, source string) error {
	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	var ticks int
	for t := range ticker.C {
		samples, err := src.Next()
		if err != nil {
			log.Printf("error reading %s: %v", source, err)
			continue
		}
		raw := imu.FromSamples(source, samples)

		payload, err := json.Marshal(raw)
		if err != nil {
			log.Printf("imu marshal error: %v", err)
			continue
		}
		if token := client.Publish(cfg.TopicIMU, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (imu): %v", token.Error())
			continue
		}

		// Log about once a second.
		ticks++
		if ticks*cfg.IMUSampleInterval < 1000 {
			continue
		}
		ticks = 0
		log.Printf("%s %s tick: accel ax=%.2f ay=%.2f az=%.2f |g|=%.2f (ok=%t) | mag mx=%.1f my=%.1f mz=%.1f |B|=%.1f (ok=%t)",
			t.Format(time.RFC3339), source,
			raw.Ax, raw.Ay, raw.Az, norm(raw.Ax, raw.Ay, raw.Az), raw.AccelOK,
			raw.Mx, raw.My, raw.Mz, norm(raw.Mx, raw.My, raw.Mz), raw.MagOK,
		)
	}
	return nil
}

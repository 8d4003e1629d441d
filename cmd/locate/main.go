// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/locate/main.go
//
// Locates the sun or moon in one saved photo, given the device attitude at
// the moment it was taken.
//
// Run:
//
//	go run ./cmd/locate -image IMG_0042.jpg -azimuth 200 -pitch 5
//	go run ./cmd/locate -image IMG_0042.jpg -analysis
package main

import (
	"flag"
	"log"
	"os"

	"github.com/relabs-tech/sky_locator/internal/app"
	"github.com/relabs-tech/sky_locator/internal/config"
	"github.com/relabs-tech/sky_locator/internal/orientation"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults are used when empty)")
	image := flag.String("image", "", "image file to analyze")
	azimuth := flag.Float64("azimuth", 0, "device azimuth in degrees clockwise from north")
	pitch := flag.Float64("pitch", 0, "device pitch in degrees, positive when tilted down")
	roll := flag.Float64("roll", 0, "device roll in degrees")
	publish := flag.Bool("publish", false, "send the estimate to the configured MQTT/HTTP sinks")
	analysis := flag.Bool("analysis", false, "print detector diagnostics only")
	flag.Parse()

	if *image == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	opts := app.LocateOptions{
		Image: *image,
		Orientation: orientation.Orientation{
			AzimuthDeg:      *azimuth,
			PitchDeg:        *pitch,
			RollDeg:         *roll,
			AzimuthReliable: true,
		},
		Publish:  *publish,
		Analysis: *analysis,
	}
	if err := app.RunLocate(cfg, opts, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

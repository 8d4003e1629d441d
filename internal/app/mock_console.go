// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/sky_locator/internal/orientation"
)

// RunMockConsole runs the orientation filter on the mock source locally
// and prints what it derives, without any broker.
func RunMockConsole() error {
	src := orientation.NewMockSource()
	filter := orientation.NewFilter(orientation.DefaultAlpha)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		samples, err := src.Next()
		if err != nil {
			return err
		}
		for _, s := range samples {
			filter.Update(s)
		}

		o, ok := filter.Current()
		if !ok {
			fmt.Println("warming up...")
			continue
		}
		fmt.Printf(
			"AZ=%6.2f  PITCH=%6.2f  ROLL=%6.2f\n",
			o.AzimuthDeg,
			o.PitchDeg,
			o.RollDeg,
		)
	}
	return nil
}

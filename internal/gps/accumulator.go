// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Accumulator folds NMEA sentences into a Fix. GGA contributes altitude and
// fix quality; each RMC completes a fix.
type Accumulator struct {
	current Fix
}

// Feed parses one line. It returns the accumulated fix and true when the
// line was an RMC sentence. Lines that are not sentences are ignored.
func (a *Accumulator) Feed(line string) (Fix, bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, fmt.Errorf("nmea: %w", err)
	}

	switch m := sentence.(type) {
	case nmea.RMC:
		a.current.Time = m.Time.String()
		a.current.Date = m.Date.String()
		a.current.Latitude = m.Latitude
		a.current.Longitude = m.Longitude
		a.current.SpeedKnots = m.Speed
		a.current.CourseDeg = m.Course
		a.current.Validity = m.Validity
		return a.current, true, nil

	case nmea.GGA:
		a.current.Quality = m.FixQuality
		a.current.Satellites = m.NumSatellites
		if m.FixQuality != nmea.Invalid {
			a.current.Altitude = m.Altitude
			a.current.HasAltitude = true
		}
	}
	return Fix{}, false, nil
}

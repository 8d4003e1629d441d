// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/sky_locator/internal/config"
	"github.com/relabs-tech/sky_locator/internal/gps"
	"github.com/relabs-tech/sky_locator/internal/imu"
	"github.com/relabs-tech/sky_locator/internal/metrics"
	"github.com/relabs-tech/sky_locator/internal/orientation"
	"github.com/relabs-tech/sky_locator/internal/report"
	"github.com/relabs-tech/sky_locator/internal/sky"
	"github.com/relabs-tech/sky_locator/internal/vision"
)

// Capture is one frame request. Orientation is filled in when the frame
// is requested in capture snapshot mode, or by callers that already know
// the device attitude.
type Capture struct {
	ID          string
	Source      string
	Requested   time.Time
	Orientation *orientation.Orientation
}

// Result is everything produced for one processed frame.
type Result struct {
	CaptureID        string                  `json:"capture_id"`
	Source           string                  `json:"source"`
	Time             time.Time               `json:"time"`
	Width            int                     `json:"width"`
	Height           int                     `json:"height"`
	Orientation      orientation.Orientation `json:"orientation"`
	OrientationKnown bool                    `json:"orientation_known"`
	Disk             *vision.Disk            `json:"disk,omitempty"`
	Offsets          *sky.Offsets            `json:"offsets,omitempty"`
	Estimate         sky.Estimate            `json:"estimate"`
	Annotated        string                  `json:"annotated,omitempty"`
}

// Locator ties the orientation filter, the detector and the resolver
// together. Sensor input and frames may arrive from different goroutines.
type Locator struct {
	cfg      *config.Config
	filter   *orientation.Filter
	detector *vision.Detector
	geometry sky.Geometry
	tracker  gps.Tracker
	dispatch *report.Dispatcher
	deviceID string

	last atomic.Pointer[Result]

	magMu   sync.Mutex
	lastMag time.Time

	subMu sync.Mutex
	subs  map[chan Result]struct{}
}

// NewLocator builds a locator from cfg. dispatch may be nil, in which case
// results are not reported anywhere.
func NewLocator(cfg *config.Config, dispatch *report.Dispatcher) (*Locator, error) {
	geometry := sky.Geometry{
		FOVHorizontalDeg: cfg.CameraFOVHorizontal,
		FOVVerticalDeg:   cfg.CameraFOVVertical,
	}
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	l := &Locator{
		cfg:      cfg,
		filter:   orientation.NewFilter(cfg.FilterAlpha),
		detector: vision.NewDetector(detectorParams(cfg)),
		geometry: geometry,
		dispatch: dispatch,
		deviceID: report.DeviceID(cfg.DeviceID),
		subs:     make(map[chan Result]struct{}),
	}

	if cfg.Magnetometer == config.MagnetometerOff {
		l.filter.SetMagnetometerAvailable(false)
		log.Println("locator: WARNING magnetometer disabled, azimuth is unreliable (gravity-only mode)")
	}
	return l, nil
}

func detectorParams(cfg *config.Config) vision.Params {
	return vision.Params{
		ThresholdRatio:  cfg.DetectThresholdRatio,
		MinArea:         cfg.DetectMinArea,
		MinCircularity:  cfg.DetectMinCircularity,
		ProximityFactor: cfg.DetectProximityFactor,
		MinPeak:         uint8(cfg.DetectMinPeak),
		LogContours:     cfg.LogContours,
		Backend:         cfg.DetectBackend,
	}
}

// magHold is how long a magnetometer reading keeps azimuth enabled in auto
// mode. Separate accelerometer and magnetometer producers interleave.
const magHold = 2 * time.Second

// HandleIMU feeds one IMU reading into the orientation filter. In auto
// magnetometer mode the filter uses the magnetometer while readings for it
// keep arriving.
func (l *Locator) HandleIMU(raw imu.IMURaw) {
	if l.cfg.Magnetometer == config.MagnetometerAuto {
		l.trackMagnetometer(raw)
	}

	for _, s := range raw.Samples() {
		l.filter.Update(s)
	}
}

func (l *Locator) trackMagnetometer(raw imu.IMURaw) {
	at := raw.Time
	if at.IsZero() {
		at = time.Now()
	}

	l.magMu.Lock()
	if raw.MagOK {
		l.lastMag = at
	}
	available := !l.lastMag.IsZero() && at.Sub(l.lastMag) < magHold
	l.magMu.Unlock()

	if available == l.filter.MagnetometerAvailable() {
		return
	}
	l.filter.SetMagnetometerAvailable(available)
	if available {
		log.Printf("locator: magnetometer data from %s, azimuth enabled", raw.Source)
	} else {
		log.Printf("locator: WARNING no magnetometer data from %s for %v, azimuth is unreliable (gravity-only mode)", raw.Source, magHold)
	}
}

// HandleFix records a GPS fix as the last known location.
func (l *Locator) HandleFix(f gps.Fix) {
	l.tracker.Update(f, time.Now())
}

// Orientation returns the latest device orientation.
func (l *Locator) Orientation() (orientation.Orientation, bool) {
	return l.filter.Current()
}

// Location returns the last known location.
func (l *Locator) Location() (gps.Location, bool) {
	return l.tracker.Last()
}

// Last returns the result of the most recent frame.
func (l *Locator) Last() (Result, bool) {
	p := l.last.Load()
	if p == nil {
		return Result{}, false
	}
	return *p, true
}

// Geometry returns the camera calibration in use.
func (l *Locator) Geometry() sky.Geometry {
	return l.geometry
}

// BeginCapture stamps a new capture request. In capture snapshot mode the
// orientation is read now rather than after analysis.
func (l *Locator) BeginCapture(source string) *Capture {
	c := &Capture{
		ID:        uuid.NewString(),
		Source:    source,
		Requested: time.Now(),
	}
	if l.cfg.OrientationSnapshot == config.SnapshotAtCapture {
		if o, ok := l.filter.Current(); ok {
			c.Orientation = &o
		}
	}
	return c
}

// ProcessFile loads the image file named by c.Source and processes it.
func (l *Locator) ProcessFile(c *Capture) (Result, error) {
	img, err := vision.LoadFrame(c.Source)
	if err != nil {
		metrics.FramesProcessed.WithLabelValues(metrics.OutcomeError).Inc()
		log.Printf("locator: capture %s: %v", c.ID, err)
		return Result{}, err
	}
	return l.Process(c, img)
}

// Process runs detection, projection and resolution for one frame, then
// reports the result. Input errors abort the frame without an estimate.
func (l *Locator) Process(c *Capture, img image.Image) (Result, error) {
	start := time.Now()
	a, err := l.detector.Analyze(img)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FramesProcessed.WithLabelValues(metrics.OutcomeError).Inc()
		log.Printf("locator: capture %s (%s): %v", c.ID, c.Source, err)
		return Result{}, fmt.Errorf("analyze %s: %w", c.Source, err)
	}

	res := Result{
		CaptureID: c.ID,
		Source:    c.Source,
		Time:      time.Now(),
		Width:     a.Width,
		Height:    a.Height,
		Disk:      a.Disk,
	}

	if c.Orientation != nil {
		res.Orientation, res.OrientationKnown = *c.Orientation, true
	} else {
		res.Orientation, res.OrientationKnown = l.filter.Current()
	}
	if !res.OrientationKnown {
		log.Printf("locator: capture %s: orientation unknown, resolving against a level north-facing device", c.ID)
	}
	log.Printf("locator: device az=%.2f pitch=%.2f roll=%.2f (azimuth reliable: %t)",
		res.Orientation.AzimuthDeg, res.Orientation.PitchDeg, res.Orientation.RollDeg, res.Orientation.AzimuthReliable)

	if a.Disk != nil {
		off, err := sky.Project(*a.Disk, a.Width, a.Height, l.geometry)
		if err != nil {
			metrics.FramesProcessed.WithLabelValues(metrics.OutcomeError).Inc()
			return Result{}, fmt.Errorf("project %s: %w", c.Source, err)
		}
		res.Offsets = &off
		log.Printf("locator: disk at (%.1f,%.1f) r=%.1f, camera offsets h=%.2f v=%.2f",
			a.Disk.CenterX, a.Disk.CenterY, a.Disk.RadiusPx, off.HorizontalDeg, off.VerticalDeg)
		res.Estimate = sky.Resolve(a.Disk, res.Orientation, off)
		log.Printf("locator: object az=%.2f el=%.2f", res.Estimate.AzimuthDeg, res.Estimate.ElevationDeg)
		metrics.FramesProcessed.WithLabelValues(metrics.OutcomeDetected).Inc()
	} else {
		res.Estimate = sky.Resolve(nil, res.Orientation, sky.Offsets{})
		log.Printf("locator: capture %s: no object detected", c.ID)
		metrics.FramesProcessed.WithLabelValues(metrics.OutcomeUndetected).Inc()
	}

	if l.cfg.AnnotateDir != "" {
		path, err := vision.SaveAnnotated(l.cfg.AnnotateDir, c.Source, img, a.Disk)
		if err != nil {
			log.Printf("locator: %v", err)
		} else {
			res.Annotated = path
		}
	}

	l.last.Store(&res)
	l.broadcast(res)
	l.report(res)
	return res, nil
}

func (l *Locator) report(res Result) {
	if l.dispatch == nil {
		return
	}

	in := report.Input{
		Time:        res.Time,
		DeviceID:    l.deviceID,
		CaptureID:   res.CaptureID,
		Orientation: res.Orientation,
		Estimate:    res.Estimate,
		Geometry:    l.geometry,
	}
	if loc, ok := l.tracker.Last(); ok {
		in.Location = &loc
	} else {
		log.Println("locator: current location unknown")
	}

	p, err := report.Build(in)
	if err != nil {
		log.Printf("locator: capture %s: %v", res.CaptureID, err)
		return
	}
	l.dispatch.Dispatch(p)
}

// Subscribe returns a channel receiving every future result. Slow
// subscribers miss results rather than blocking the pipeline.
func (l *Locator) Subscribe() (<-chan Result, func()) {
	ch := make(chan Result, 8)
	l.subMu.Lock()
	l.subs[ch] = struct{}{}
	l.subMu.Unlock()

	return ch, func() {
		l.subMu.Lock()
		if _, ok := l.subs[ch]; ok {
			delete(l.subs, ch)
			close(ch)
		}
		l.subMu.Unlock()
	}
}

func (l *Locator) broadcast(res Result) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- res:
		default:
		}
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package vision finds the sun or moon disk in a single camera frame.
//
// The detector combines an intensity peak with shape filtering: the frame is
// thresholded relative to its brightest pixel, external contours of the
// bright regions are measured, and the largest sufficiently circular region
// whose enclosing circle lies near the peak is reported.
package vision

import (
	"fmt"
	"image"
	"log"
	"math"
)

// Params tunes the detector.
type Params struct {
	ThresholdRatio  float64 // foreground: intensity >= ratio * peak
	MinArea         float64 // contours below this area (px²) are noise
	MinCircularity  float64 // exclusive lower bound
	ProximityFactor float64 // circle center must be within factor*radius of the peak
	MinPeak         uint8   // frames whose brightest pixel is dimmer hold no disk
	LogContours     bool
	Backend         string // BackendNative or BackendOpenCV
}

// Contour extraction backends.
const (
	BackendNative = "native"
	BackendOpenCV = "opencv"
)

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		ThresholdRatio:  0.8,
		MinArea:         100,
		MinCircularity:  0.6,
		ProximityFactor: 2,
		MinPeak:         50,
		Backend:         BackendNative,
	}
}

// Disk is the detected sun or moon.
type Disk struct {
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	RadiusPx    float64 `json:"radius_px"`
	AreaPx      float64 `json:"area_px"`
	Circularity float64 `json:"circularity"`
}

// Rejection reasons reported on a Candidate.
const (
	RejectSmall    = "below minimum area"
	RejectBorder   = "touches frame border"
	RejectShape    = "not circular"
	RejectSmaller  = "not larger than current best"
	RejectDistance = "too far from brightest point"
)

// Candidate describes one evaluated contour.
type Candidate struct {
	AreaPx      float64 `json:"area_px"`
	PerimeterPx float64 `json:"perimeter_px"`
	Circularity float64 `json:"circularity"`
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	RadiusPx    float64 `json:"radius_px"`
	Border      bool    `json:"touches_border,omitempty"`
	Rejected    string  `json:"rejected,omitempty"`
}

// Analysis is the full result of analyzing one frame.
type Analysis struct {
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	Brightest    image.Point `json:"brightest"`
	MaxIntensity uint8       `json:"max_intensity"`
	Threshold    float64     `json:"threshold"`
	Candidates   []Candidate `json:"candidates"`
	Disk         *Disk       `json:"disk,omitempty"`
}

// Detector is stateless across frames and safe for concurrent use.
type Detector struct {
	params Params
}

// NewDetector returns a detector using p.
func NewDetector(p Params) *Detector {
	return &Detector{params: p}
}

// Detect returns the best disk in img, or nil when nothing qualifies.
func (d *Detector) Detect(img image.Image) (*Disk, error) {
	a, err := d.Analyze(img)
	if err != nil {
		return nil, err
	}
	return a.Disk, nil
}

// Analyze runs detection and returns every intermediate measurement.
// Frames without pixels or without any light yield ErrEmptyFrame. Frames
// whose peak is below MinPeak are analyzed no further and hold no disk.
func (d *Detector) Analyze(img image.Image) (Analysis, error) {
	if img == nil || img.Bounds().Empty() {
		return Analysis{}, ErrEmptyFrame
	}

	if d.params.Backend == BackendOpenCV {
		return d.analyzeOpenCV(img)
	}

	gray := intensity(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	a := Analysis{Width: w, Height: h}

	// First maximum in raster order.
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x, v := range row {
			if v > a.MaxIntensity {
				a.MaxIntensity = v
				a.Brightest = image.Pt(x, y)
			}
		}
	}
	if a.MaxIntensity == 0 {
		return a, fmt.Errorf("%w: all pixels are zero", ErrEmptyFrame)
	}
	if d.tooDim(a) {
		return a, nil
	}

	a.Threshold = float64(a.MaxIntensity) * d.params.ThresholdRatio
	m := &mask{w: w, h: h, px: make([]bool, w*h)}
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x, v := range row {
			m.px[y*w+x] = float64(v) >= a.Threshold
		}
	}

	if d.params.LogContours {
		log.Printf("vision: brightest point at (%d,%d) with intensity %d", a.Brightest.X, a.Brightest.Y, a.MaxIntensity)
	}

	maxArea := 0.0
	for _, contour := range externalContours(m) {
		area := polygonArea(contour)
		if area < d.params.MinArea {
			d.consider(&a, Candidate{AreaPx: area}, &maxArea)
			continue
		}

		perim := perimeter(contour)
		circ := minEnclosingCircle(contour)
		d.consider(&a, Candidate{
			AreaPx:      area,
			PerimeterPx: perim,
			Circularity: circularity(area, perim),
			CenterX:     circ.x,
			CenterY:     circ.y,
			RadiusPx:    circ.r,
			Border:      touchesBorder(contour, w, h),
		}, &maxArea)
	}

	return a, nil
}

// tooDim reports whether the frame peak is below MinPeak. A dim frame
// thresholded relative to its own peak turns mostly foreground.
func (d *Detector) tooDim(a Analysis) bool {
	if a.MaxIntensity >= d.params.MinPeak {
		return false
	}
	if d.params.LogContours {
		log.Printf("vision: peak intensity %d below %d, no disk", a.MaxIntensity, d.params.MinPeak)
	}
	return true
}

// consider applies the acceptance rule to c, in contour discovery order.
// Regions cut by the frame edge are never accepted: their enclosing circle
// does not describe the object.
// The area comparison is strict, so the first of equal-area contours wins.
func (d *Detector) consider(a *Analysis, c Candidate, maxArea *float64) {
	defer func() { a.Candidates = append(a.Candidates, c) }()

	if c.AreaPx < d.params.MinArea {
		c.Rejected = RejectSmall
		return
	}

	if d.params.LogContours {
		log.Printf("vision: contour area=%.1f circularity=%.3f center=(%.1f,%.1f) radius=%.1f",
			c.AreaPx, c.Circularity, c.CenterX, c.CenterY, c.RadiusPx)
	}

	dist := math.Hypot(c.CenterX-float64(a.Brightest.X), c.CenterY-float64(a.Brightest.Y))
	switch {
	case c.Border:
		c.Rejected = RejectBorder
	case c.Circularity <= d.params.MinCircularity:
		c.Rejected = RejectShape
	case c.AreaPx <= *maxArea:
		c.Rejected = RejectSmaller
	case dist >= c.RadiusPx*d.params.ProximityFactor:
		c.Rejected = RejectDistance
	default:
		*maxArea = c.AreaPx
		a.Disk = &Disk{
			CenterX:     c.CenterX,
			CenterY:     c.CenterY,
			RadiusPx:    c.RadiusPx,
			AreaPx:      c.AreaPx,
			Circularity: c.Circularity,
		}
	}
}

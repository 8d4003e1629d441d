// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build gocv

package vision

import (
	"fmt"
	"image"
	"log"
	"math"

	"gocv.io/x/gocv"
)

// analyzeOpenCV runs the same pipeline on OpenCV primitives. Contours come
// back in OpenCV's own order, so ties between equal areas may resolve
// differently from the native tracer.
func (d *Detector) analyzeOpenCV(img image.Image) (Analysis, error) {
	gray := intensity(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	a := Analysis{Width: w, Height: h}

	pix := gray.Pix
	if gray.Stride != w {
		pix = make([]byte, 0, w*h)
		for y := 0; y < h; y++ {
			pix = append(pix, gray.Pix[y*gray.Stride:y*gray.Stride+w]...)
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return a, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(mat)
	a.MaxIntensity = uint8(maxVal)
	a.Brightest = maxLoc
	if a.MaxIntensity == 0 {
		return a, fmt.Errorf("%w: all pixels are zero", ErrEmptyFrame)
	}
	if d.tooDim(a) {
		return a, nil
	}

	// THRESH_BINARY keeps v > t; for 8-bit input that equals v >= ceil(threshold).
	a.Threshold = float64(a.MaxIntensity) * d.params.ThresholdRatio
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(mat, &mask, float32(math.Ceil(a.Threshold)-1), 255, gocv.ThresholdBinary)

	if d.params.LogContours {
		log.Printf("vision: brightest point at (%d,%d) with intensity %d", a.Brightest.X, a.Brightest.Y, a.MaxIntensity)
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	maxArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		area := gocv.ContourArea(pv)
		if area < d.params.MinArea {
			d.consider(&a, Candidate{AreaPx: area}, &maxArea)
			continue
		}

		perim := gocv.ArcLength(pv, true) * kulpa
		x, y, r := gocv.MinEnclosingCircle(pv)
		box := gocv.BoundingRect(pv)
		d.consider(&a, Candidate{
			AreaPx:      area,
			PerimeterPx: perim,
			Circularity: circularity(area, perim),
			CenterX:     float64(x),
			CenterY:     float64(y),
			RadiusPx:    float64(r),
			Border:      box.Min.X <= 0 || box.Min.Y <= 0 || box.Max.X >= w || box.Max.Y >= h,
		}, &maxArea)
	}

	return a, nil
}

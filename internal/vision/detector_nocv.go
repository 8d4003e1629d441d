// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !gocv

package vision

import (
	"errors"
	"image"
)

// ErrNoOpenCV is returned when the OpenCV backend is selected in a binary
// built without the gocv tag.
var ErrNoOpenCV = errors.New("opencv backend not compiled in (build with -tags gocv)")

func (d *Detector) analyzeOpenCV(image.Image) (Analysis, error) {
	return Analysis{}, ErrNoOpenCV
}

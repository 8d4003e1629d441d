// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !gocv

package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenCVBackendUnavailable(t *testing.T) {
	p := DefaultParams()
	p.Backend = BackendOpenCV
	img := blank(32, 32)
	fillDisk(img, 16, 16, 8, 255)

	_, err := NewDetector(p).Detect(img)
	assert.ErrorIs(t, err, ErrNoOpenCV)
}

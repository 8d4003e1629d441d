// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecode is returned when a frame cannot be read or decoded.
	ErrDecode = errors.New("frame decode failed")

	// ErrEmptyFrame is returned for a frame with no pixels or no light at all.
	ErrEmptyFrame = errors.New("empty frame")

	// ErrFrameTooLarge is returned when a frame header declares more than
	// MaxFramePixels pixels. Nothing is allocated for its pixels.
	ErrFrameTooLarge = errors.New("frame too large")
)

// MaxFramePixels bounds the declared size of a frame (about 100 MP).
const MaxFramePixels = 100 << 20

// LoadFrame reads and decodes an image file (JPEG, PNG, BMP, TIFF, WebP).
func LoadFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	img, err := DecodeFrame(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// DecodeFrame decodes an in-memory image. The header is checked against
// MaxFramePixels before the pixels are decoded.
func DecodeFrame(r io.Reader) (image.Image, error) {
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrEmptyFrame, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxFramePixels {
		return nil, fmt.Errorf("%w: %s image is %dx%d", ErrFrameTooLarge, format, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrEmptyFrame, format)
	}
	return img, nil
}

// intensity converts img to a zero-origin single-channel image using the
// standard luma weights.
func intensity(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}

	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

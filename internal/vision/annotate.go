// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	markColor  = color.RGBA{0, 255, 0, 255}
	labelColor = color.RGBA{255, 0, 0, 255}
)

// Annotate returns a copy of img with the disk outlined and labeled.
// A nil disk returns an unmarked copy.
func Annotate(img image.Image, disk *Disk) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	if disk == nil {
		return out
	}

	// Three pixel thick outline.
	for dr := -1.0; dr <= 1.0; dr++ {
		drawCircle(out, disk.CenterX, disk.CenterY, disk.RadiusPx+dr, markColor)
	}

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(disk.CenterX), int(disk.CenterY)),
	}
	d.DrawString("Object")
	return out
}

func drawCircle(dst *image.RGBA, cx, cy, r float64, c color.Color) {
	if r <= 0 {
		return
	}
	steps := int(math.Ceil(2 * math.Pi * r * 2))
	for i := 0; i < steps; i++ {
		t := 2 * math.Pi * float64(i) / float64(steps)
		dst.Set(int(math.Round(cx+r*math.Cos(t))), int(math.Round(cy+r*math.Sin(t))), c)
	}
}

// SaveAnnotated writes the annotated frame as <dir>/<name>_processed.png,
// where name is the base name of source without extension.
func SaveAnnotated(dir, source string, img image.Image, disk *Disk) (string, error) {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	path := filepath.Join(dir, base+"_processed.png")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("annotate: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, Annotate(img, disk)); err != nil {
		return "", fmt.Errorf("annotate: encode %s: %w", path, err)
	}
	return path, nil
}

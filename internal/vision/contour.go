// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"image"
	"math"
)

// kulpa scales an 8-connected chain length to an unbiased perimeter
// estimate; the raw chain overstates a circle's circumference by ~5%.
const kulpa = 0.948

// mask is a binary foreground image.
type mask struct {
	w, h int
	px   []bool
}

func (m *mask) at(p image.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.w && p.Y < m.h && m.px[p.Y*m.w+p.X]
}

// Moore neighborhood in clockwise order (y grows downwards), starting west.
var ring = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func ringIndex(d image.Point) int {
	for i, r := range ring {
		if r == d {
			return i
		}
	}
	return 0
}

// externalContours returns the outer boundary of every 8-connected
// foreground region. Regions are reported in raster order of their
// top-left pixel, so the order is deterministic for a given mask.
func externalContours(m *mask) [][]image.Point {
	seen := make([]bool, len(m.px))
	var contours [][]image.Point
	var stack []image.Point

	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			i := y*m.w + x
			if !m.px[i] || seen[i] {
				continue
			}

			start := image.Pt(x, y)
			contours = append(contours, traceBoundary(m, start))

			// Flood the region so its inner pixels do not start new contours.
			seen[i] = true
			stack = append(stack[:0], start)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, d := range ring {
					n := p.Add(d)
					if !m.at(n) {
						continue
					}
					j := n.Y*m.w + n.X
					if !seen[j] {
						seen[j] = true
						stack = append(stack, n)
					}
				}
			}
		}
	}
	return contours
}

// traceBoundary walks the outer boundary clockwise from start, which must
// be the first region pixel in raster order. Tracing stops when start is
// left in the same direction as the first move.
func traceBoundary(m *mask, start image.Point) []image.Point {
	pts := []image.Point{start}
	cur, back := start, start.Add(image.Pt(-1, 0))
	var first image.Point
	started := false
	limit := 4*len(m.px) + 8

	for len(pts) < limit {
		next, nextBack, ok := mooreStep(m, cur, back)
		if !ok {
			break // isolated pixel
		}
		if cur == start {
			if started && next == first {
				pts = pts[:len(pts)-1]
				break
			}
			if !started {
				first, started = next, true
			}
		}
		pts = append(pts, next)
		cur, back = next, nextBack
	}
	return pts
}

// mooreStep scans clockwise around cur starting after back and returns the
// first foreground neighbor together with the background pixel checked
// just before it.
func mooreStep(m *mask, cur, back image.Point) (image.Point, image.Point, bool) {
	k := ringIndex(back.Sub(cur))
	for i := 1; i <= 8; i++ {
		j := (k + i) % 8
		n := cur.Add(ring[j])
		if m.at(n) {
			return n, cur.Add(ring[(j+7)%8]), true
		}
	}
	return image.Point{}, image.Point{}, false
}

// polygonArea is the shoelace area of the closed polygon through pts.
func polygonArea(pts []image.Point) float64 {
	var sum int
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(sum)) / 2
}

// touchesBorder reports whether any of pts lies on the edge of a w×h frame.
func touchesBorder(pts []image.Point, w, h int) bool {
	for _, p := range pts {
		if p.X == 0 || p.Y == 0 || p.X == w-1 || p.Y == h-1 {
			return true
		}
	}
	return false
}

// perimeter estimates the length of the closed boundary through pts.
func perimeter(pts []image.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	var chain float64
	for i, p := range pts {
		d := pts[(i+1)%len(pts)].Sub(p)
		chain += math.Hypot(float64(d.X), float64(d.Y))
	}
	return chain * kulpa
}

// circularity is 4π·area/perimeter², clamped to [0, 1].
func circularity(area, perim float64) float64 {
	if perim <= 0 {
		return 0
	}
	return math.Min(1, 4*math.Pi*area/(perim*perim))
}

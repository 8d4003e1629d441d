// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"image"
	"math"
	"math/rand"
)

type circle struct {
	x, y, r float64
}

func (c circle) contains(x, y float64) bool {
	return math.Hypot(x-c.x, y-c.y) <= c.r*(1+1e-9)+1e-9
}

// minEnclosingCircle returns the smallest circle containing every point
// (Welzl's incremental algorithm). Points are visited in a fixed
// pseudo-random order so the result is reproducible.
func minEnclosingCircle(pts []image.Point) circle {
	if len(pts) == 0 {
		return circle{}
	}

	p := make([][2]float64, len(pts))
	for i, pt := range pts {
		p[i] = [2]float64{float64(pt.X), float64(pt.Y)}
	}
	rand.New(rand.NewSource(1)).Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })

	c := circle{x: p[0][0], y: p[0][1]}
	for i := 1; i < len(p); i++ {
		if c.contains(p[i][0], p[i][1]) {
			continue
		}
		c = circle{x: p[i][0], y: p[i][1]}
		for j := 0; j < i; j++ {
			if c.contains(p[j][0], p[j][1]) {
				continue
			}
			c = circleFrom2(p[i], p[j])
			for k := 0; k < j; k++ {
				if !c.contains(p[k][0], p[k][1]) {
					c = circleFrom3(p[i], p[j], p[k])
				}
			}
		}
	}
	return c
}

func circleFrom2(a, b [2]float64) circle {
	x, y := (a[0]+b[0])/2, (a[1]+b[1])/2
	return circle{x: x, y: y, r: math.Hypot(a[0]-x, a[1]-y)}
}

// circleFrom3 is the circumcircle of a, b and c. Collinear points fall back
// to the circle spanning the farthest pair.
func circleFrom3(a, b, c [2]float64) circle {
	bx, by := b[0]-a[0], b[1]-a[1]
	cx, cy := c[0]-a[0], c[1]-a[1]
	d := 2 * (bx*cy - by*cx)
	if math.Abs(d) < 1e-12 {
		best := circleFrom2(a, b)
		for _, cand := range []circle{circleFrom2(a, c), circleFrom2(b, c)} {
			if cand.r > best.r {
				best = cand
			}
		}
		return best
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	return circle{x: a[0] + ux, y: a[1] + uy, r: math.Hypot(ux, uy)}
}

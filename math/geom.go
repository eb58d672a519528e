// math/geom.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import gomath "math"

///////////////////////////////////////////////////////////////////////////
// Geometry

// LineLineIntersect returns the intersection point of the two lines
// specified by the vertices (p1, p2) and (p3, p4). An additional returned
// Boolean value indicates whether a valid intersection was found; there's
// none for parallel lines.
//
// Longitude is x and latitude is y. The inputs are rounded to 8 decimal
// places before solving and so is the result; the transition surface
// heights that are computed from the intersection are sensitive to
// input precision and depend on this.
func LineLineIntersect(p1, p2, p3, p4 Point2LL) (Point2LL, bool) {
	p1, p2, p3, p4 = p1.Round8(), p2.Round8(), p3.Round8(), p4.Round8()

	// Solve parametrically relative to p1; the absolute coordinates are
	// large compared to the runway-scale differences between them.
	r := Sub2(p2, p1)
	s := Sub2(p4, p3)
	denom := Cross(r, s)
	if gomath.Abs(denom) <= 1e-9*Length2(r)*Length2(s) {
		return Point2LL{}, false
	}
	t := Cross(Sub2(p3, p1), s) / denom

	return Point2LL(Add2(p1, Scale2(r, t))).Round8(), true
}

// PointInTriangle reports whether p is inside (or on the boundary of) the
// triangle with vertices a, b and c. Vertex order may be either
// clockwise or counter-clockwise. All coordinates are rounded to 8
// decimal places first.
func PointInTriangle(p, a, b, c Point2LL) bool {
	p, a, b, c = p.Round8(), a.Round8(), b.Round8(), c.Round8()

	d0 := Cross(Sub2(b, a), Sub2(p, a))
	d1 := Cross(Sub2(c, b), Sub2(p, b))
	d2 := Cross(Sub2(a, c), Sub2(p, c))

	hasNeg := d0 < 0 || d1 < 0 || d2 < 0
	hasPos := d0 > 0 || d1 > 0 || d2 > 0
	return !(hasNeg && hasPos)
}

// PointInPolygon2LL checks whether the given point is inside the given
// polygon; it assumes that the last vertex does not repeat the first one,
// and so includes the edge from pts[len(pts)-1] to pts[0] in its test.
func PointInPolygon2LL(p Point2LL, pts []Point2LL) bool {
	inside := false
	for i := 0; i < len(pts); i++ {
		p0, p1 := pts[i], pts[(i+1)%len(pts)]
		if (p0[1] <= p[1] && p[1] < p1[1]) || (p1[1] <= p[1] && p[1] < p0[1]) {
			x := p0[0] + (p[1]-p0[1])*(p1[0]-p0[0])/(p1[1]-p0[1])
			if x > p[0] {
				inside = !inside
			}
		}
	}
	return inside
}

// ShoelaceArea returns the signed area of the polygon in squared input
// units; it is positive for counter-clockwise vertex order.
func ShoelaceArea(pts []Point2LL) float64 {
	var a float64
	for i := range pts {
		a += Cross(pts[i], pts[(i+1)%len(pts)])
	}
	return a / 2
}

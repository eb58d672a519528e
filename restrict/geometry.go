// restrict/geometry.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package restrict

import (
	"errors"

	"github.com/skyshow/airlimit/math"
)

var ErrGeometryUnavailable = errors.New("geometry provider unavailable")

// Geometry is the spherical geometry capability that the engine is
// built on; see the geodesy package for implementations.
type Geometry interface {
	// Distance returns the great-circle distance between a and b in
	// meters.
	Distance(a, b math.Point2LL) float64
	// Bearing returns the initial bearing from a to b in degrees, in
	// [0,360).
	Bearing(a, b math.Point2LL) float64
	// PointInPolygon reports whether p is inside the polygon, which is
	// given as an open loop of vertices.
	PointInPolygon(p math.Point2LL, polygon []math.Point2LL) bool
}

// GeometrySource provides a Geometry on demand; an error means that it
// is unavailable.
type GeometrySource func() (Geometry, error)

// StaticSource returns a GeometrySource that always provides g.
func StaticSource(g Geometry) GeometrySource {
	return func() (Geometry, error) {
		if g == nil {
			return nil, ErrGeometryUnavailable
		}
		return g, nil
	}
}

// geodesy/geodesy.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package geodesy provides the spherical geometry capabilities that the
// restriction engine consumes: great-circle distance, initial bearing and
// point-in-polygon tests.
package geodesy

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/skyshow/airlimit/math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Provider has the same method set as restrict.Geometry; it is repeated
// here so that this package doesn't depend on the engine.
type Provider interface {
	Distance(a, b math.Point2LL) float64
	Bearing(a, b math.Point2LL) float64
	PointInPolygon(p math.Point2LL, polygon []math.Point2LL) bool
}

var ErrUnknownProvider = errors.New("unknown geometry provider")

var providers = map[string]func() Provider{
	"spherical": func() Provider { return Spherical{} },
	"orb":       func() Provider { return Orb{} },
}

// Names returns the names accepted by Lookup, sorted.
func Names() []string {
	var n []string
	for name := range providers {
		n = append(n, name)
	}
	slices.Sort(n)
	return n
}

// Lookup returns the named provider. The empty string selects the
// default, "spherical".
func Lookup(name string) (Provider, error) {
	if name == "" {
		name = "spherical"
	}
	if p, ok := providers[strings.ToLower(name)]; ok {
		return p(), nil
	}
	return nil, fmt.Errorf("%s: %w; options are %s", name, ErrUnknownProvider,
		strings.Join(Names(), ", "))
}

///////////////////////////////////////////////////////////////////////////
// Spherical

// Spherical implements Provider on a sphere of radius math.EarthRadius.
type Spherical struct{}

func (Spherical) Distance(a, b math.Point2LL) float64 {
	return math.Distance2LL(a, b)
}

func (Spherical) Bearing(a, b math.Point2LL) float64 {
	return math.Bearing2LL(a, b)
}

// PointInPolygon treats latitude and longitude as planar coordinates;
// restriction polygons span a few tens of kilometers at most, where the
// difference from great-circle edges is negligible.
func (Spherical) PointInPolygon(p math.Point2LL, polygon []math.Point2LL) bool {
	if len(polygon) < 3 {
		return false
	}
	return math.PointInPolygon2LL(p, polygon)
}

///////////////////////////////////////////////////////////////////////////
// Orb

// Orb implements Provider with github.com/paulmach/orb. Note that orb
// uses the WGS84 equatorial radius for haversine distances, so distances
// differ from Spherical's by about 0.1%.
type Orb struct{}

func toOrb(p math.Point2LL) orb.Point {
	return orb.Point{p[0], p[1]}
}

func (Orb) Distance(a, b math.Point2LL) float64 {
	return geo.DistanceHaversine(toOrb(a), toOrb(b))
}

func (Orb) Bearing(a, b math.Point2LL) float64 {
	// geo.Bearing returns (-180,180].
	return math.NormalizeHeading(geo.Bearing(toOrb(a), toOrb(b)))
}

func (Orb) PointInPolygon(p math.Point2LL, polygon []math.Point2LL) bool {
	if len(polygon) < 3 {
		return false
	}
	ring := make(orb.Ring, 0, len(polygon)+1)
	for _, v := range polygon {
		ring = append(ring, toOrb(v))
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return planar.RingContains(ring, toOrb(p))
}

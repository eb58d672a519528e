// aviation/profile.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	gomath "math"
	"net/url"
	"strconv"

	"github.com/skyshow/airlimit/math"
	"github.com/skyshow/airlimit/util"

	"github.com/mmp/earcut-go"
)

var (
	ErrUnknownAirport = errors.New("unknown airport")
	ErrNoRunways      = errors.New("no runways defined")
)

const (
	// TransitionSlope is the denominator of the transition surface slope.
	TransitionSlope = 7

	DefaultApproachSlope = 50
	DefaultConicalSlope  = 50
)

// AirportProfile holds the obstacle limitation surfaces of a single
// airport. All heights are meters above sea level unless noted and all
// radii and lengths are meters.
type AirportProfile struct {
	Id             string        `json:"id,omitempty"` // set from the registry key
	Name           string        `json:"name"`
	NameJa         string        `json:"name_ja,omitempty"`
	ReferenceURL   string        `json:"reference_url,omitempty"`
	ReferencePoint math.Point2LL `json:"reference_point"`
	Elevation      float64       `json:"elevation"`

	Horizontal HorizontalSurface       `json:"horizontal"`
	Conical    *ConicalSurface         `json:"conical,omitempty"`
	Outer      *OuterHorizontalSurface `json:"outer_horizontal,omitempty"`

	Runways []RunwaySurfaceModel `json:"runways,omitempty"`
	// RunwayDefinitions are turned into Runways by PostDeserialize and
	// then cleared.
	RunwayDefinitions []RunwayDefinition `json:"runway_definitions,omitempty"`
}

type HorizontalSurface struct {
	Radius float64 `json:"radius"`
	Height float64 `json:"height"` // above the airport elevation
}

type ConicalSurface struct {
	Radius float64 `json:"radius"`
	Slope  float64 `json:"slope,omitempty"` // denominator; 50 if unset
	// Cap, if set, limits the conical surface to Cap meters above the
	// airport elevation.
	Cap *float64 `json:"cap,omitempty"`
	// Vicinity, if given, restricts the conical zone to the points inside
	// it, for airports where the surface is not a full annulus.
	Vicinity []math.Point2LL `json:"vicinity,omitempty"`
}

type OuterHorizontalSurface struct {
	Radius   float64         `json:"radius"`
	Height   float64         `json:"height"` // above the airport elevation
	Vicinity []math.Point2LL `json:"vicinity,omitempty"`
}

// RunwaySurfaceModel gives the surfaces associated with one runway as
// explicit vertex lists. The landing strip vertices are ordered end 0
// left, end 0 right, end 1 right, end 1 left, where left and right are
// with respect to the direction from end 0 to end 1.
type RunwaySurfaceModel struct {
	Id              string           `json:"id"`
	Strip           [4]math.Point2LL `json:"strip"`
	Ends            [2]RunwayEnd     `json:"ends"`
	StripHalfLength float64          `json:"strip_half_length"`
	StripHalfWidth  float64          `json:"strip_half_width"`

	// Transitions are the transition surface polygons alongside the
	// landing strip.
	Transitions [][]math.Point2LL `json:"transitions,omitempty"`
	// Wedges are the transition surface areas beside the approach
	// surfaces beyond the strip ends.
	Wedges []SideWedge `json:"side_wedges,omitempty"`
}

type RunwayEnd struct {
	Id        string            `json:"id,omitempty"`
	Reference math.Point2LL     `json:"reference"` // center of the landing strip end
	Elevation float64           `json:"elevation"`
	Slope     float64           `json:"slope,omitempty"` // denominator; 50 if unset
	Approach  []math.Point2LL   `json:"approach"`
	Extended  *ExtendedApproach `json:"extended,omitempty"`
}

type ExtendedApproach struct {
	Polygon []math.Point2LL `json:"polygon"`
	Slope   float64         `json:"slope,omitempty"` // defaults to the end's slope
}

// SideWedge is a triangle beside the approach surface of runway end End.
// Heights inside it are measured from Edge, the approach surface side
// edge that the wedge borders.
type SideWedge struct {
	End      int              `json:"end"`
	Triangle [3]math.Point2LL `json:"triangle"`
	Edge     [2]math.Point2LL `json:"edge"`
}

// ShortEdge returns the landing strip edge at the given end.
func (rwy *RunwaySurfaceModel) ShortEdge(end int) (math.Point2LL, math.Point2LL) {
	if end == 0 {
		return rwy.Strip[0], rwy.Strip[1]
	}
	return rwy.Strip[3], rwy.Strip[2]
}

// Far returns the index of the runway end opposite end.
func Far(end int) int {
	return 1 - end
}

func (ap *AirportProfile) HasConical() bool { return ap.Conical != nil }
func (ap *AirportProfile) HasOuter() bool   { return ap.Outer != nil }

// SingleZone reports whether the airport only defines a horizontal
// surface.
func (ap *AirportProfile) SingleZone() bool {
	return ap.Conical == nil && ap.Outer == nil
}

// MaxRadius returns the radius of the outermost zone.
func (ap *AirportProfile) MaxRadius() float64 {
	r := ap.Horizontal.Radius
	if ap.Conical != nil {
		r = max(r, ap.Conical.Radius)
	}
	if ap.Outer != nil {
		r = max(r, ap.Outer.Radius)
	}
	return r
}

// HorizontalElevation returns the height above sea level of the
// horizontal surface.
func (ap *AirportProfile) HorizontalElevation() float64 {
	return ap.Elevation + ap.Horizontal.Height
}

///////////////////////////////////////////////////////////////////////////
// Validation

// PostDeserialize finishes initializing the profile after it has been
// unmarshaled, deriving runway geometry from RunwayDefinitions and
// reporting any problems in e.
func (ap *AirportProfile) PostDeserialize(id string, e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	if ap.Id == "" {
		ap.Id = id
	} else if ap.Id != id {
		e.ErrorString("\"id\" %q doesn't match registry key %q", ap.Id, id)
	}

	if ap.Name == "" {
		e.ErrorString(`must provide "name"`)
	}
	if ap.ReferenceURL != "" {
		if u, err := url.Parse(ap.ReferenceURL); err != nil {
			e.Error(err)
		} else if u.Scheme != "http" && u.Scheme != "https" {
			e.ErrorString("\"reference_url\" %q must be an http or https URL", ap.ReferenceURL)
		}
	}
	if ap.ReferencePoint.IsZero() {
		e.ErrorString(`must provide "reference_point"`)
	}

	e.Push("horizontal")
	if ap.Horizontal.Radius <= 0 {
		e.ErrorString(`"radius" must be positive`)
	}
	if ap.Horizontal.Height < 0 {
		e.ErrorString(`"height" cannot be negative`)
	}
	e.Pop()

	if c := ap.Conical; c != nil {
		e.Push("conical")
		if c.Radius <= ap.Horizontal.Radius {
			e.ErrorString("\"radius\" %.0f must be larger than the horizontal surface radius %.0f",
				c.Radius, ap.Horizontal.Radius)
		}
		if c.Slope == 0 {
			c.Slope = DefaultConicalSlope
		} else if c.Slope < 0 {
			e.ErrorString(`"slope" cannot be negative`)
		}
		if c.Cap != nil && *c.Cap < ap.Horizontal.Height {
			e.ErrorString("\"cap\" %.1f is below the horizontal surface height %.1f", *c.Cap, ap.Horizontal.Height)
		}
		checkVicinity(c.Vicinity, e)
		e.Pop()
	}

	if o := ap.Outer; o != nil {
		e.Push("outer_horizontal")
		inner := ap.Horizontal.Radius
		if ap.Conical != nil {
			inner = ap.Conical.Radius
		}
		if o.Radius <= inner {
			e.ErrorString("\"radius\" %.0f must be larger than the inner zone radius %.0f", o.Radius, inner)
		}
		if o.Height < ap.Horizontal.Height {
			e.ErrorString("\"height\" %.1f is below the horizontal surface height %.1f", o.Height, ap.Horizontal.Height)
		}
		checkVicinity(o.Vicinity, e)
		e.Pop()
	}

	for i := range ap.RunwayDefinitions {
		def := &ap.RunwayDefinitions[i]
		e.Push("Runway definition " + def.Id)
		if def.check(e) {
			ap.Runways = append(ap.Runways, def.Derive(ap.HorizontalElevation()))
		}
		e.Pop()
	}
	ap.RunwayDefinitions = nil

	if len(ap.Runways) == 0 {
		e.Error(ErrNoRunways)
	}
	seen := make(map[string]bool)
	for i := range ap.Runways {
		rwy := &ap.Runways[i]
		e.Push("Runway " + rwy.Id)
		if seen[rwy.Id] {
			e.ErrorString("runway defined multiple times")
		}
		seen[rwy.Id] = true
		rwy.postDeserialize(e)
		e.Pop()
	}
}

func (rwy *RunwaySurfaceModel) postDeserialize(e *util.ErrorLogger) {
	if rwy.Id == "" {
		e.ErrorString(`must provide "id"`)
	}
	for i, p := range rwy.Strip {
		if p.IsZero() {
			e.ErrorString("\"strip\" vertex %d not specified", i)
		}
	}
	if rwy.StripHalfWidth <= 0 {
		e.ErrorString(`"strip_half_width" must be positive`)
	}
	if rwy.StripHalfLength <= 0 {
		e.ErrorString(`"strip_half_length" must be positive`)
	}

	for i := range rwy.Ends {
		end := &rwy.Ends[i]
		e.Push("end " + util.Select(end.Id != "", end.Id, strconv.Itoa(i)))

		if end.Reference.IsZero() {
			e.ErrorString(`must provide "reference"`)
		}
		if end.Slope == 0 {
			end.Slope = DefaultApproachSlope
		} else if end.Slope < 0 {
			e.ErrorString(`"slope" cannot be negative`)
		}
		checkPolygon("approach", end.Approach, e)

		if x := end.Extended; x != nil {
			checkPolygon("extended", x.Polygon, e)
			if x.Slope == 0 {
				x.Slope = end.Slope
			} else if x.Slope < 0 {
				e.ErrorString(`extended "slope" cannot be negative`)
			}
		}
		e.Pop()
	}
	if rwy.Ends[0].Reference == rwy.Ends[1].Reference && !rwy.Ends[0].Reference.IsZero() {
		e.ErrorString("runway ends have the same reference point")
	}

	for _, t := range rwy.Transitions {
		checkPolygon("transitions", t, e)
	}
	for i, w := range rwy.Wedges {
		if w.End != 0 && w.End != 1 {
			e.ErrorString("side wedge %d: \"end\" must be 0 or 1", i)
		}
		if w.Edge[0] == w.Edge[1] {
			e.ErrorString("side wedge %d: \"edge\" vertices must be distinct", i)
		}
		if math.ShoelaceArea(w.Triangle[:]) == 0 {
			e.ErrorString("side wedge %d: degenerate triangle", i)
		}
	}
}

func checkPolygon(name string, p []math.Point2LL, e *util.ErrorLogger) {
	if len(p) < 3 {
		e.ErrorString("%q: at least 3 vertices must be given", name)
	}
}

// checkVicinity makes sure that a vicinity polygon is usable: it must
// have at least three vertices and must not intersect itself. For the
// latter, the area of its triangulation is compared to its signed area,
// which differ for self-intersecting polygons.
func checkVicinity(v []math.Point2LL, e *util.ErrorLogger) {
	if v == nil {
		return
	}
	if len(v) < 3 {
		e.ErrorString(`"vicinity": at least 3 vertices must be given`)
		return
	}

	var verts []earcut.Vertex
	for _, p := range v {
		verts = append(verts, earcut.Vertex{P: [2]float64{p[0], p[1]}})
	}
	var triArea float64
	for _, tri := range earcut.Triangulate(earcut.Polygon{Rings: [][]earcut.Vertex{verts}}) {
		a, b, c := tri.Vertices[0].P, tri.Vertices[1].P, tri.Vertices[2].P
		triArea += gomath.Abs(math.Cross(math.Sub2(b, a), math.Sub2(c, a))) / 2
	}

	area := gomath.Abs(math.ShoelaceArea(v))
	if area == 0 {
		e.ErrorString(`"vicinity" polygon has no area`)
	} else if gomath.Abs(triArea-area) > 1e-6*area {
		e.ErrorString(`"vicinity" polygon intersects itself`)
	}
}

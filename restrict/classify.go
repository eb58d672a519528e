// restrict/classify.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package restrict

import (
	"cmp"
	gomath "math"
	"slices"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/math"
)

// Candidate is one surface that limits the height at a point.
type Candidate struct {
	Kind      SurfaceKind
	HeightM   float64
	AirportId string
	Runway    string // empty for the zone candidate
	// Zone is set for the candidate carrying the flat zone height.
	Zone bool
}

// Classification is the full result of classifying a point with respect
// to a single airport.
type Classification struct {
	AirportId string
	Zone      Zone
	Distance  float64 // from the airport reference point, meters
	// Candidates are sorted by increasing height.
	Candidates []Candidate

	InStrip, InApproach, InExtended bool

	Governing Candidate
}

// Classifier computes the candidate surfaces for points around one
// airport.
type Classifier struct {
	g  Geometry
	ap *aviation.AirportProfile
}

func NewClassifier(g Geometry, ap *aviation.AirportProfile) *Classifier {
	return &Classifier{g: g, ap: ap}
}

// Zone returns the zone that q falls in along with its distance from the
// reference point.
func (c *Classifier) Zone(q math.Point2LL) (Zone, float64) {
	ap := c.ap
	d := c.g.Distance(ap.ReferencePoint, q)

	if d <= ap.Horizontal.Radius {
		return ZoneHorizontal, d
	}
	if cs := ap.Conical; cs != nil && d <= cs.Radius && c.inVicinity(q, cs.Vicinity) {
		return ZoneConical, d
	}
	// A point outside a notched conical surface may still be in the
	// outer horizontal surface.
	if o := ap.Outer; o != nil && d <= o.Radius && c.inVicinity(q, o.Vicinity) {
		return ZoneOuterHorizontal, d
	}
	return ZoneNone, d
}

func (c *Classifier) inVicinity(q math.Point2LL, v []math.Point2LL) bool {
	return len(v) == 0 || c.g.PointInPolygon(q, v)
}

// ZoneHeight returns the height of the zone's surface at the given
// distance from the reference point.
func (c *Classifier) ZoneHeight(zone Zone, d float64) float64 {
	ap := c.ap
	switch zone {
	case ZoneConical:
		cs := ap.Conical
		h := ap.HorizontalElevation() + (d-ap.Horizontal.Radius)/cs.Slope
		if cs.Cap != nil {
			h = min(h, ap.Elevation+*cs.Cap)
		}
		return h
	case ZoneOuterHorizontal:
		return ap.Elevation + ap.Outer.Height
	default:
		return ap.HorizontalElevation()
	}
}

// Classify collects the candidates for q, which is in the given zone at
// distance d from the reference point, and selects the governing one.
func (c *Classifier) Classify(q math.Point2LL, zone Zone, d float64) Classification {
	cl := Classification{
		AirportId: c.ap.Id,
		Zone:      zone,
		Distance:  d,
	}
	if zone == ZoneNone {
		return cl
	}

	var last *SurfaceKind
	push := func(kind SurfaceKind, h float64, rwy string) {
		cl.Candidates = append(cl.Candidates, Candidate{
			Kind:      kind,
			HeightM:   h,
			AirportId: c.ap.Id,
			Runway:    rwy,
		})
		last = &kind
	}

	for i := range c.ap.Runways {
		rwy := &c.ap.Runways[i]

		if c.g.PointInPolygon(q, rwy.Strip[:]) {
			cl.InStrip = true
			push(LandingStrip, 0, rwy.Id)
		}

		for end := range rwy.Ends {
			e := &rwy.Ends[end]
			if c.g.PointInPolygon(q, e.Approach) {
				cl.InApproach = true
				push(Approach, c.approachHeight(rwy, end, q, e.Slope), rwy.Id)
			}
			if x := e.Extended; x != nil && c.g.PointInPolygon(q, x.Polygon) {
				cl.InExtended = true
				push(ExtendedApproach, c.approachHeight(rwy, end, q, x.Slope), rwy.Id)
			}
		}

		for _, t := range rwy.Transitions {
			if c.g.PointInPolygon(q, t) {
				push(Transition, c.stripTransitionHeight(rwy, q), rwy.Id)
			}
		}

		for _, w := range rwy.Wedges {
			if math.PointInTriangle(q, w.Triangle[0], w.Triangle[1], w.Triangle[2]) {
				if h, ok := c.wedgeTransitionHeight(rwy, w, q); ok {
					push(Transition, h, rwy.Id)
				}
			}
		}
	}

	// The zone's flat height is always a candidate; it carries the label
	// of the last runway surface found, if any.
	zc := Candidate{
		Kind:      zone.SurfaceKind(),
		HeightM:   c.ZoneHeight(zone, d),
		AirportId: c.ap.Id,
		Zone:      true,
	}
	if last != nil {
		zc.Kind = *last
	}
	cl.Candidates = append(cl.Candidates, zc)

	cl.Governing = governing(cl.Candidates, cl.InStrip, cl.InExtended, cl.InApproach)
	return cl
}

// governing sorts the candidates in place and returns the lowest one,
// relabeled according to the structural matches: inside a landing strip
// the height is 0, and otherwise the extended approach and approach
// surfaces take the label even if another surface is lower.
func governing(cands []Candidate, strip, extended, approach bool) Candidate {
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(a.HeightM, b.HeightM); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})

	g := cands[0]
	switch {
	case strip:
		g.Kind, g.HeightM = LandingStrip, 0
	case extended:
		g.Kind = ExtendedApproach
	case approach:
		g.Kind = Approach
	}
	return g
}

// approachHeight returns the height of the approach surface of the given
// runway end at q: the end's elevation plus the distance from the end
// along the runway centerline divided by the slope.
func (c *Classifier) approachHeight(rwy *aviation.RunwaySurfaceModel, end int, q math.Point2LL, slope float64) float64 {
	near, far := &rwy.Ends[end], &rwy.Ends[aviation.Far(end)]

	d := c.g.Distance(near.Reference, q)
	theta := math.Radians(c.g.Bearing(near.Reference, far.Reference) - c.g.Bearing(near.Reference, q))
	return near.Elevation + gomath.Abs(d*gomath.Cos(theta))/slope
}

// stripTransitionHeight returns the height of the transition surface
// beside the landing strip: the runway elevation interpolated along the
// centerline plus 1/7 of the lateral distance beyond the strip edge.
func (c *Classifier) stripTransitionHeight(rwy *aviation.RunwaySurfaceModel, q math.Point2LL) float64 {
	e0, e1 := &rwy.Ends[0], &rwy.Ends[1]

	d := c.g.Distance(e0.Reference, q)
	theta := math.Radians(c.g.Bearing(e0.Reference, e1.Reference) - c.g.Bearing(e0.Reference, q))
	along, lateral := d*gomath.Cos(theta), gomath.Abs(d*gomath.Sin(theta))

	t := math.Clamp(along/(2*rwy.StripHalfLength), 0, 1)
	return math.Lerp(t, e0.Elevation, e1.Elevation) +
		max(0, lateral-rwy.StripHalfWidth)/aviation.TransitionSlope
}

// wedgeTransitionHeight returns the height of the transition surface
// beside an approach surface. The foot is where the line through q
// parallel to the strip end meets the approach surface edge; the height
// there is the approach surface height and it rises at 1/7 from there
// to q. No height is returned if the lines don't intersect.
func (c *Classifier) wedgeTransitionHeight(rwy *aviation.RunwaySurfaceModel, w aviation.SideWedge, q math.Point2LL) (float64, bool) {
	a, b := rwy.ShortEdge(w.End)
	q2 := math.Point2LL(math.Add2(q, math.Sub2(b, a)))

	foot, ok := math.LineLineIntersect(q, q2, w.Edge[0], w.Edge[1])
	if !ok {
		return 0, false
	}

	slope := rwy.Ends[w.End].Slope
	return c.approachHeight(rwy, w.End, foot, slope) + c.g.Distance(q, foot)/aviation.TransitionSlope, true
}

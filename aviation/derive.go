// aviation/derive.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"github.com/skyshow/airlimit/math"
	"github.com/skyshow/airlimit/util"
)

// RunwayDefinition is the compact form of a runway used in the registry:
// the surfaces are derived from the threshold locations and the
// regulatory dimensions. Zero values select the defaults for an
// instrument runway.
type RunwayDefinition struct {
	Id         string           `json:"id"`
	EndIds     [2]string        `json:"end_ids,omitempty"`
	Thresholds [2]math.Point2LL `json:"thresholds"`
	Elevations [2]float64       `json:"elevations"`
	Slopes     [2]float64       `json:"slopes,omitempty"`

	StripOverrun       float64 `json:"strip_overrun,omitempty"`       // 60
	StripHalfWidth     float64 `json:"strip_half_width,omitempty"`    // 150
	ApproachLength     float64 `json:"approach_length,omitempty"`     // 3000
	ApproachDivergence float64 `json:"approach_divergence,omitempty"` // 0.15

	// Extended approach surfaces continue each approach surface by the
	// given length; zero means there is none at that end.
	ExtendedLength [2]float64 `json:"extended_length,omitempty"`
	ExtendedSlope  [2]float64 `json:"extended_slope,omitempty"`
}

const (
	DefaultStripOverrun       = 60
	DefaultStripHalfWidth     = 150
	DefaultApproachLength     = 3000
	DefaultApproachDivergence = 0.15
)

func (def *RunwayDefinition) check(e *util.ErrorLogger) bool {
	ok := true
	if def.Id == "" {
		e.ErrorString(`must provide "id"`)
		ok = false
	}
	for i, t := range def.Thresholds {
		if t.IsZero() {
			e.ErrorString("threshold %d not specified", i)
			ok = false
		}
	}
	if ok && def.Thresholds[0] == def.Thresholds[1] {
		e.ErrorString("thresholds must be distinct")
		ok = false
	}

	for i := range 2 {
		if def.Slopes[i] == 0 {
			def.Slopes[i] = DefaultApproachSlope
		}
		if def.ExtendedLength[i] > 0 && def.ExtendedSlope[i] == 0 {
			def.ExtendedSlope[i] = def.Slopes[i]
		}
		if def.Slopes[i] < 0 || def.ExtendedSlope[i] < 0 || def.ExtendedLength[i] < 0 {
			e.ErrorString("slopes and lengths cannot be negative")
			ok = false
		}
	}

	if def.StripOverrun == 0 {
		def.StripOverrun = DefaultStripOverrun
	}
	if def.StripHalfWidth == 0 {
		def.StripHalfWidth = DefaultStripHalfWidth
	}
	if def.ApproachLength == 0 {
		def.ApproachLength = DefaultApproachLength
	}
	if def.ApproachDivergence == 0 {
		def.ApproachDivergence = DefaultApproachDivergence
	}
	if def.StripOverrun < 0 || def.StripHalfWidth < 0 || def.ApproachLength < 0 || def.ApproachDivergence < 0 {
		e.ErrorString("strip and approach dimensions cannot be negative")
		ok = false
	}

	return ok
}

// Derive returns the surface model for the runway. horizontalElevation
// is the height above sea level of the airport's horizontal surface; the
// transition surfaces extend out to where they reach it.
func (def RunwayDefinition) Derive(horizontalElevation float64) RunwaySurfaceModel {
	t0, t1 := def.Thresholds[0], def.Thresholds[1]
	hdg := math.Bearing2LL(t0, t1)
	left, right := math.NormalizeHeading(hdg-90), math.NormalizeHeading(hdg+90)
	// outward[i] is the direction away from the runway at end i.
	outward := [2]float64{math.OppositeHeading(hdg), hdg}

	var centers [2]math.Point2LL
	centers[0] = math.Offset2LL(t0, outward[0], def.StripOverrun)
	centers[1] = math.Offset2LL(t1, outward[1], def.StripOverrun)

	hw := def.StripHalfWidth
	// corners[i] is {left, right} at end i.
	var corners [2][2]math.Point2LL
	for i, c := range centers {
		corners[i] = [2]math.Point2LL{math.Offset2LL(c, left, hw), math.Offset2LL(c, right, hw)}
	}

	rwy := RunwaySurfaceModel{
		Id:              def.Id,
		Strip:           [4]math.Point2LL{corners[0][0], corners[0][1], corners[1][1], corners[1][0]},
		StripHalfLength: math.Distance2LL(centers[0], centers[1]) / 2,
		StripHalfWidth:  hw,
	}

	// outerCorners returns the {left, right} corners of the surface that
	// starts at the strip end i and extends outward for length meters.
	outerCorners := func(i int, length float64) [2]math.Point2LL {
		o := math.Offset2LL(centers[i], outward[i], length)
		w := hw + length*def.ApproachDivergence
		return [2]math.Point2LL{math.Offset2LL(o, left, w), math.Offset2LL(o, right, w)}
	}

	la := def.ApproachLength
	var approachOuter [2][2]math.Point2LL
	for i := range 2 {
		approachOuter[i] = outerCorners(i, la)
		end := RunwayEnd{
			Id:        def.EndIds[i],
			Reference: centers[i],
			Elevation: def.Elevations[i],
			Slope:     def.Slopes[i],
		}
		// Vertex order is chosen so the polygons are simple: strip edge
		// first, then the outer edge in the opposite direction.
		if i == 0 {
			end.Approach = []math.Point2LL{corners[0][0], corners[0][1], approachOuter[0][1], approachOuter[0][0]}
		} else {
			end.Approach = []math.Point2LL{corners[1][1], corners[1][0], approachOuter[1][0], approachOuter[1][1]}
		}

		if le := def.ExtendedLength[i]; le > 0 {
			x := outerCorners(i, la+le)
			var poly []math.Point2LL
			if i == 0 {
				poly = []math.Point2LL{approachOuter[0][0], approachOuter[0][1], x[1], x[0]}
			} else {
				poly = []math.Point2LL{approachOuter[1][1], approachOuter[1][0], x[0], x[1]}
			}
			end.Extended = &ExtendedApproach{Polygon: poly, Slope: def.ExtendedSlope[i]}
		}

		rwy.Ends[i] = end
	}

	// The transition surfaces rise at 1/7 from the strip sides until they
	// meet the horizontal surface.
	wt := (horizontalElevation - min(def.Elevations[0], def.Elevations[1])) * TransitionSlope
	if wt <= 0 {
		return rwy
	}

	for side, lateral := range [2]float64{left, right} {
		s0, s1 := corners[0][side], corners[1][side]
		rwy.Transitions = append(rwy.Transitions, []math.Point2LL{
			s0, s1, math.Offset2LL(s1, lateral, wt), math.Offset2LL(s0, lateral, wt)})
	}

	// Beyond each strip end, the transition surface continues beside the
	// approach surface. The wedge ends where the approach surface itself
	// reaches the horizontal surface.
	for i := range 2 {
		along := min((horizontalElevation-def.Elevations[i])*def.Slopes[i], la)
		if along <= 0 {
			continue
		}
		for side, lateral := range [2]float64{left, right} {
			s, o := corners[i][side], approachOuter[i][side]
			e := math.Point2LL(math.Lerp2(along/la, s, o))
			rwy.Wedges = append(rwy.Wedges, SideWedge{
				End:      i,
				Triangle: [3]math.Point2LL{s, e, math.Offset2LL(s, lateral, wt)},
				Edge:     [2]math.Point2LL{s, o},
			})
		}
	}

	return rwy
}

// math/latlong.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"encoding/json"
	"fmt"
	gomath "math"
	"regexp"
	"strconv"
)

// EarthRadius is the mean radius of the Earth in meters, as used for all
// of the great-circle computations here.
const EarthRadius = 6371000

///////////////////////////////////////////////////////////////////////////
// Point2LL

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude. Every planar step
// (intersections, inclusion tests) uses that same axis assignment.
type Point2LL [2]float64

// LL makes a Point2LL from latitude and longitude given in that order,
// which is the order people usually write them in.
func LL(lat, lng float64) Point2LL {
	return Point2LL{lng, lat}
}

func (p Point2LL) Longitude() float64 {
	return p[0]
}

func (p Point2LL) Latitude() float64 {
	return p[1]
}

func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// Round8 returns the point with both coordinates rounded to 8 decimal
// places.
func (p Point2LL) Round8() Point2LL {
	return Point2LL{Round8(p[0]), Round8(p[1])}
}

// DMSString returns the position in degrees minutes, seconds, e.g.
// N035.33.12.000,E139.46.52.000
func (p Point2LL) DMSString() string {
	format := func(v float64) string {
		ms := int64(gomath.Round(Abs(v) * 3600000))
		return fmt.Sprintf("%03d.%02d.%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
	}

	ns, ew := "N", "E"
	if p[1] < 0 {
		ns = "S"
	}
	if p[0] < 0 {
		ew = "W"
	}
	return ns + format(p[1]) + "," + ew + format(p[0])
}

func (p Point2LL) String() string {
	return strconv.FormatFloat(p[1], 'f', -1, 64) + ", " + strconv.FormatFloat(p[0], 'f', -1, 64)
}

var (
	// pair of floats (no exponents)
	reWaypointFloat = regexp.MustCompile(`^(\-?[0-9]+(?:\.[0-9]+)?), *(\-?[0-9]+(?:\.[0-9]+)?)$`)
	// https://en.wikipedia.org/wiki/ISO_6709#String_expression_(Annex_H)
	// e.g. +353312.000+1394652.000
	reISO6709H = regexp.MustCompile(`^([-+][0-9][0-9])([0-9][0-9])([0-9][0-9])\.([0-9][0-9][0-9])([-+][0-9][0-9][0-9])([0-9][0-9])([0-9][0-9])\.([0-9][0-9][0-9])$`)
)

// Parse points of the form "N35.33.12.000, E139.46.52.000". The survey
// tables the registry is built from are full of these, so this is done by
// hand rather than with a regexp.
func tryParseDotted(b []byte) (Point2LL, bool) {
	if len(b) == 0 || (b[0] != 'N' && b[0] != 'S') {
		return Point2LL{}, false
	}
	negateLatitude := b[0] == 'S'

	// Skip over the N/S and parse the four dotted numbers following it
	b = b[1:]
	latitude, n, ok := tryParseDottedNumbers(b)
	if !ok {
		return Point2LL{}, false
	}
	if negateLatitude {
		latitude = -latitude
	}
	b = b[n:]

	if len(b) == 0 || b[0] != ',' {
		return Point2LL{}, false
	}
	b = b[1:]
	if len(b) > 0 && b[0] == ' ' {
		b = b[1:]
	}

	if len(b) == 0 || (b[0] != 'E' && b[0] != 'W') {
		return Point2LL{}, false
	}
	negateLongitude := b[0] == 'W'

	b = b[1:]
	longitude, n, ok := tryParseDottedNumbers(b)
	if !ok || n != len(b) {
		return Point2LL{}, false
	}
	if negateLongitude {
		longitude = -longitude
	}

	return Point2LL{longitude, latitude}, true
}

// Parse a latlong of the form aaa.bbb.ccc.ddd and return the corresponding
// value in degrees, the number of bytes of b consumed, and a bool
// indicating success or failure.
func tryParseDottedNumbers(b []byte) (float64, int, bool) {
	n := 0
	var ll float64

	// Scan to the end of the current number group; return
	// the number of bytes it uses.
	scan := func(b []byte) int {
		for i, v := range b {
			if v == '.' || v == ',' {
				return i
			}
		}
		return len(b)
	}

	for i := 0; i < 4; i++ {
		end := scan(b)
		if end == 0 {
			return 0, 0, false
		}

		value := 0
		for _, ch := range b[:end] {
			if ch < '0' || ch > '9' {
				return 0, 0, false
			}
			value *= 10
			value += int(ch - '0')
		}
		if i == 3 {
			// Treat the last set of digits as a decimal, so that
			// Nxx.yy.zz.1 is handled like Nxx.yy.zz.100.
			for j := end; j < 3; j++ {
				value *= 10
			}
		}

		scales := [4]float64{1, 60, 3600, 3600000}
		ll += float64(value) / scales[i]
		n += end
		b = b[end:]

		if i < 3 {
			if len(b) == 0 || b[0] != '.' {
				return 0, 0, false
			}
			b = b[1:]
			n++
		}
	}

	return ll, n, true
}

// ParseLatLong parses a point given as dotted degrees-minutes-seconds,
// as a "lat, lng" decimal pair, or as an ISO 6709 Annex H string.
func ParseLatLong(llstr []byte) (Point2LL, error) {
	p, err := parseLatLong(llstr)
	if err != nil {
		return Point2LL{}, err
	}
	if p[1] < -90 || p[1] > 90 {
		return Point2LL{}, fmt.Errorf("%s: latitude out of range", llstr)
	}
	if p[0] < -180 || p[0] > 180 {
		return Point2LL{}, fmt.Errorf("%s: longitude out of range", llstr)
	}
	return p, nil
}

func parseLatLong(llstr []byte) (Point2LL, error) {
	if p, ok := tryParseDotted(llstr); ok {
		return p, nil
	} else if strs := reWaypointFloat.FindStringSubmatch(string(llstr)); len(strs) == 3 {
		lat, err := strconv.ParseFloat(strs[1], 64)
		if err != nil {
			return Point2LL{}, err
		}
		lng, err := strconv.ParseFloat(strs[2], 64)
		if err != nil {
			return Point2LL{}, err
		}
		return LL(lat, lng), nil
	} else if strs := reISO6709H.FindStringSubmatch(string(llstr)); len(strs) == 9 {
		parse := func(deg, min, sec, frac string) (float64, error) {
			d, err := strconv.Atoi(deg)
			if err != nil {
				return 0, err
			}
			m, err := strconv.Atoi(min)
			if err != nil {
				return 0, err
			}
			s, err := strconv.Atoi(sec)
			if err != nil {
				return 0, err
			}
			f, err := strconv.Atoi(frac)
			if err != nil {
				return 0, err
			}
			sgn := 1.0
			if deg[0] == '-' {
				sgn = -1
			}
			d = Abs(d)
			return sgn * (float64(d) + float64(m)/60 + float64(s)/3600 + float64(f)/3600000), nil
		}

		var p Point2LL
		var err error
		p[1], err = parse(strs[1], strs[2], strs[3], strs[4])
		if err != nil {
			return Point2LL{}, err
		}
		p[0], err = parse(strs[5], strs[6], strs[7], strs[8])
		if err != nil {
			return Point2LL{}, err
		}
		return p, nil
	}
	return Point2LL{}, fmt.Errorf("%s: invalid latlong string", llstr)
}

///////////////////////////////////////////////////////////////////////////
// Great-circle computations

// Distance2LL returns the great-circle distance in meters between two
// points, using the haversine formula.
func Distance2LL(a Point2LL, b Point2LL) float64 {
	// https://www.movable-type.co.uk/scripts/latlong.html
	lat1, lon1 := Radians(a[1]), Radians(a[0])
	lat2, lon2 := Radians(b[1]), Radians(b[0])
	dlat, dlon := lat2-lat1, lon2-lon1

	x := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	c := 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))
	return EarthRadius * c
}

// Bearing2LL returns the initial bearing in degrees, in [0,360), of the
// great circle path from a to b.
func Bearing2LL(a Point2LL, b Point2LL) float64 {
	lat1, lat2 := Radians(a[1]), Radians(b[1])
	dlon := Radians(b[0] - a[0])

	y := gomath.Sin(dlon) * gomath.Cos(lat2)
	x := gomath.Cos(lat1)*gomath.Sin(lat2) - gomath.Sin(lat1)*gomath.Cos(lat2)*gomath.Cos(dlon)
	return NormalizeHeading(Degrees(gomath.Atan2(y, x)))
}

// Offset2LL returns the point at the given distance in meters along the
// great circle leaving p with the given initial bearing.
func Offset2LL(p Point2LL, bearing float64, dist float64) Point2LL {
	lat1, lon1 := Radians(p[1]), Radians(p[0])
	theta := Radians(bearing)
	delta := dist / EarthRadius

	lat2 := SafeASin(gomath.Sin(lat1)*gomath.Cos(delta) + gomath.Cos(lat1)*gomath.Sin(delta)*gomath.Cos(theta))
	lon2 := lon1 + gomath.Atan2(gomath.Sin(theta)*gomath.Sin(delta)*gomath.Cos(lat1),
		gomath.Cos(delta)-gomath.Sin(lat1)*gomath.Sin(lat2))

	lng := Degrees(lon2)
	// Normalize to [-180,180).
	lng = gomath.Mod(lng+540, 360) - 180
	return Point2LL{lng, Degrees(lat2)}
}

///////////////////////////////////////////////////////////////////////////
// JSON

// Store Point2LLs as "lat, lng" strings in JSON, for friendliness; the
// order matches how the survey tables and map tools write them.
func (p Point2LL) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Point2LL) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("empty latlong")
	}
	if b[0] == '[' {
		// [lng, lat], as in GeoJSON.
		var pt [2]float64
		err := json.Unmarshal(b, &pt)
		if err == nil {
			*p = pt
		}
		return err
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pt, err := ParseLatLong([]byte(s))
	if err != nil {
		return err
	}
	*p = pt
	return nil
}

// CheckJSON allows the registry JSON type checker to accept both of the
// encodings that UnmarshalJSON supports.
func (p *Point2LL) CheckJSON(json interface{}) bool {
	switch v := json.(type) {
	case string:
		return true
	case []interface{}:
		if len(v) != 2 {
			return false
		}
		for _, c := range v {
			if _, ok := c.(float64); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

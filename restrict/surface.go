// restrict/surface.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package restrict

import (
	"fmt"
	"slices"
)

// SurfaceKind identifies an obstacle limitation surface. The order of
// the values is used to break exact height ties.
type SurfaceKind int

const (
	LandingStrip SurfaceKind = iota
	Approach
	ExtendedApproach
	Transition
	Horizontal
	Conical
	OuterHorizontal
)

var surfaceKindNames = [...]string{
	LandingStrip:     "LandingStrip",
	Approach:         "Approach",
	ExtendedApproach: "ExtendedApproach",
	Transition:       "Transition",
	Horizontal:       "Horizontal",
	Conical:          "Conical",
	OuterHorizontal:  "OuterHorizontal",
}

// SurfaceKinds returns all of the kinds, in order.
func SurfaceKinds() []SurfaceKind {
	return []SurfaceKind{LandingStrip, Approach, ExtendedApproach, Transition, Horizontal, Conical, OuterHorizontal}
}

func (k SurfaceKind) String() string {
	if k < 0 || int(k) >= len(surfaceKindNames) {
		return fmt.Sprintf("SurfaceKind(%d)", int(k))
	}
	return surfaceKindNames[k]
}

func ParseSurfaceKind(s string) (SurfaceKind, error) {
	if i := slices.Index(surfaceKindNames[:], s); i != -1 {
		return SurfaceKind(i), nil
	}
	return 0, fmt.Errorf("%s: unknown surface kind", s)
}

func (k SurfaceKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(surfaceKindNames) {
		return nil, fmt.Errorf("%d: invalid surface kind", int(k))
	}
	return []byte(surfaceKindNames[k]), nil
}

func (k *SurfaceKind) UnmarshalText(b []byte) error {
	kind, err := ParseSurfaceKind(string(b))
	if err == nil {
		*k = kind
	}
	return err
}

func (k *SurfaceKind) CheckJSON(json interface{}) bool {
	s, ok := json.(string)
	if !ok {
		return false
	}
	_, err := ParseSurfaceKind(s)
	return err == nil
}

// Zone is the distance band around an airport's reference point that a
// point falls in.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneHorizontal
	ZoneConical
	ZoneOuterHorizontal
)

func (z Zone) String() string {
	switch z {
	case ZoneNone:
		return "none"
	case ZoneHorizontal:
		return "horizontal"
	case ZoneConical:
		return "conical"
	case ZoneOuterHorizontal:
		return "outer horizontal"
	default:
		return fmt.Sprintf("Zone(%d)", int(z))
	}
}

// SurfaceKind returns the surface that covers the zone when no runway
// surface applies.
func (z Zone) SurfaceKind() SurfaceKind {
	switch z {
	case ZoneConical:
		return Conical
	case ZoneOuterHorizontal:
		return OuterHorizontal
	default:
		return Horizontal
	}
}

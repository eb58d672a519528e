// cmd/airlimit/query.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/math"
	"github.com/skyshow/airlimit/present"
	"github.com/skyshow/airlimit/restrict"
	"github.com/skyshow/airlimit/util"

	"github.com/goforj/godump"
)

// readPoints reads one "lat, lng" point per line; blank lines and lines
// starting with # are skipped. All malformed lines are reported.
func readPoints(r io.Reader, name string) ([]math.Point2LL, error) {
	var e util.ErrorLogger
	var pts []math.Point2LL

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}

		if p, err := math.ParseLatLong([]byte(s)); err != nil {
			e.ErrorString("%s:%d: %v", name, line, err)
		} else {
			pts = append(pts, p)
		}
	}
	if err := scanner.Err(); err != nil {
		e.Error(err)
	}

	return pts, e.Err()
}

type outputOptions struct {
	JSON bool
	Dump bool
	Lang present.Language
}

// writeResults writes the result for each point, either as one JSON
// object per line or as text.
func writeResults(w io.Writer, reg *aviation.Registry, pts []math.Point2LL, results []restrict.Result, opts outputOptions) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i, r := range results {
		switch {
		case opts.JSON:
			if err := enc.Encode(struct {
				Point math.Point2LL `json:"point"`
				restrict.Result
			}{pts[i], r}); err != nil {
				return err
			}
		case opts.Dump:
			godump.Fdump(w, r)
		default:
			if len(results) > 1 {
				fmt.Fprintf(w, "%s\n", pts[i])
			}
			if err := present.Present(r, reg, opts.Lang).Render(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// explainPoint writes the classification of p with respect to every
// airport whose zones include it, in priority order; the first one is
// the one that determines the result.
func explainPoint(w io.Writer, eng *restrict.Engine, p math.Point2LL, g restrict.Geometry, opts outputOptions) error {
	fmt.Fprintf(w, "%s (%s)\n", p, p.DMSString())

	n := 0
	for _, id := range eng.Registry().Ids() {
		cl, err := eng.Classify(id, p, g)
		if err != nil {
			return err
		}
		if cl.Zone == restrict.ZoneNone {
			continue
		}

		if opts.Dump {
			godump.Fdump(w, cl)
		} else {
			ap, _ := eng.Registry().Get(id)
			dir := math.ShortCompass(g.Bearing(ap.ReferencePoint, p))
			fmt.Fprintf(w, "  %s: %s zone, %.0f m %s of the reference point%s\n", id, cl.Zone, cl.Distance, dir,
				util.Select(n == 0, "", " (not used)"))
			for _, c := range cl.Candidates {
				src := util.Select(c.Zone, "zone", c.Runway)
				fmt.Fprintf(w, "    %-28s %9.3f m  %s\n", present.Label(c.Kind, opts.Lang), c.HeightM, src)
			}
			fmt.Fprintf(w, "    => %s %s\n", present.Label(cl.Governing.Kind, opts.Lang),
				present.FormatHeight(cl.Governing.HeightM, opts.Lang))
		}
		n++
	}

	if n == 0 {
		fmt.Fprintln(w, "  no airport zones include this point")
	}
	return nil
}

// lintRegistry writes a summary of the registry and notes airports whose
// zones overlap, where priority order decides which one is used.
func lintRegistry(w io.Writer, reg *aviation.Registry, g restrict.Geometry) {
	fmt.Fprintf(w, "registry %s: %d airports\n", reg.Version, reg.Len())

	var prev []*aviation.AirportProfile
	for ap := range reg.All() {
		zones := util.Select(ap.SingleZone(), "single zone", "three zones")
		fmt.Fprintf(w, "  %s %-40s %d runways, %s, radius %.0f m\n", ap.Id, ap.Name, len(ap.Runways), zones, ap.MaxRadius())

		for _, p := range prev {
			if d := g.Distance(p.ReferencePoint, ap.ReferencePoint); d < p.MaxRadius()+ap.MaxRadius() {
				fmt.Fprintf(w, "    overlaps %s (%.0f m apart); %s has priority\n", p.Id, d, p.Id)
			}
		}
		prev = append(prev, ap)
	}
}

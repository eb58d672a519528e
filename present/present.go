// present/present.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package present turns engine results into text for people to read.
package present

import (
	"fmt"
	"io"
	gomath "math"
	"strings"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/restrict"
)

type Language int

const (
	English Language = iota
	Japanese
)

func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(s) {
	case "", "en", "english":
		return English, nil
	case "ja", "jp", "japanese":
		return Japanese, nil
	default:
		return English, fmt.Errorf("%s: unknown language", s)
	}
}

func (l Language) String() string {
	if l == Japanese {
		return "ja"
	}
	return "en"
}

var labels = map[Language]map[restrict.SurfaceKind]string{
	English: {
		restrict.LandingStrip:     "Landing strip",
		restrict.Approach:         "Approach surface",
		restrict.ExtendedApproach: "Extended approach surface",
		restrict.Transition:       "Transitional surface",
		restrict.Horizontal:       "Horizontal surface",
		restrict.Conical:          "Conical surface",
		restrict.OuterHorizontal:  "Outer horizontal surface",
	},
	Japanese: {
		restrict.LandingStrip:     "着陸帯",
		restrict.Approach:         "進入表面",
		restrict.ExtendedApproach: "延長進入表面",
		restrict.Transition:       "転移表面",
		restrict.Horizontal:       "水平表面",
		restrict.Conical:          "円錐表面",
		restrict.OuterHorizontal:  "外側水平表面",
	},
}

// Label returns the localized name of the surface.
func Label(k restrict.SurfaceKind, lang Language) string {
	if l, ok := labels[lang][k]; ok {
		return l
	}
	return k.String()
}

// FormatHeight formats a height in meters. The heights 0, 57 and 307 are
// given exactly; everything else is truncated and marked as approximate.
func FormatHeight(h float64, lang Language) string {
	exact := h == 0 || h == 57 || h == 307
	m := int(gomath.Floor(h))

	switch {
	case lang == Japanese && exact:
		return fmt.Sprintf("%dm", m)
	case lang == Japanese:
		return fmt.Sprintf("約%dm", m)
	case exact:
		return fmt.Sprintf("%d m", m)
	default:
		return fmt.Sprintf("approximately %d m", m)
	}
}

type Line struct {
	AirportId string
	Airport   string
	Surface   string
	Height    string
}

func (l Line) String() string {
	return l.Airport + ": " + l.Surface + ", " + l.Height
}

// Link is an airport's official reference for its restriction surfaces.
type Link struct {
	AirportId string
	Airport   string
	URL       string
}

type Presentation struct {
	Language Language
	Lines    []Line
	Links    []Link
	Error    bool
}

// Present builds the lines and reference links for a result. Airport
// names come from reg; an airport that isn't in it is shown by its
// identifier.
func Present(r restrict.Result, reg *aviation.Registry, lang Language) Presentation {
	p := Presentation{Language: lang, Error: r.Error}

	seen := make(map[string]bool)
	for _, it := range r.Items {
		name, url := it.AirportId, ""
		if reg != nil {
			if ap, ok := reg.Get(it.AirportId); ok {
				name = airportName(ap, lang)
				url = ap.ReferenceURL
			}
		}

		p.Lines = append(p.Lines, Line{
			AirportId: it.AirportId,
			Airport:   name,
			Surface:   Label(it.SurfaceType, lang),
			Height:    FormatHeight(it.HeightM, lang),
		})

		if !seen[it.AirportId] && url != "" {
			p.Links = append(p.Links, Link{AirportId: it.AirportId, Airport: name, URL: url})
		}
		seen[it.AirportId] = true
	}

	return p
}

func airportName(ap *aviation.AirportProfile, lang Language) string {
	if lang == Japanese && ap.NameJa != "" {
		return ap.NameJa
	}
	return ap.Name
}

var messages = map[Language][2]string{
	English:  {"Height restriction information is unavailable.", "No airport height restrictions apply."},
	Japanese: {"高さ制限情報を取得できませんでした。", "空港の高さ制限の対象外です。"},
}

// Render writes the presentation as text, one line per item followed by
// the reference links.
func (p Presentation) Render(w io.Writer) error {
	var b strings.Builder
	switch {
	case p.Error:
		b.WriteString(messages[p.Language][0] + "\n")
	case len(p.Lines) == 0:
		b.WriteString(messages[p.Language][1] + "\n")
	default:
		for _, l := range p.Lines {
			b.WriteString(l.String() + "\n")
		}
	}

	for _, l := range p.Links {
		fmt.Fprintf(&b, "  %s: %s\n", l.Airport, l.URL)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

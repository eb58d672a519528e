// restrict/engine.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package restrict

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/log"
	"github.com/skyshow/airlimit/math"

	"golang.org/x/sync/errgroup"
)

// Item is the governing surface at a point.
type Item struct {
	AirportId   string      `json:"airportId" msgpack:"airportId"`
	SurfaceType SurfaceKind `json:"surfaceType" msgpack:"surfaceType"`
	HeightM     float64     `json:"heightM" msgpack:"heightM"`
}

// Result is the outcome of evaluating a point. Items is empty if no
// airport's surfaces apply; Error is set if the geometry provider was
// unavailable, in which case Items is always empty.
type Result struct {
	Items []Item `json:"items" msgpack:"items"`
	Error bool   `json:"error,omitempty" msgpack:"error,omitempty"`
}

func emptyResult() Result {
	return Result{Items: []Item{}}
}

func errorResult() Result {
	return Result{Items: []Item{}, Error: true}
}

// Engine evaluates points against the airports of a registry. It holds
// no mutable state and may be used concurrently.
type Engine struct {
	registry *aviation.Registry
	lg       *log.Logger

	// BatchConcurrency limits the number of points that EvaluateBatch
	// evaluates at once; if zero, GOMAXPROCS is used.
	BatchConcurrency int
}

func NewEngine(registry *aviation.Registry, lg *log.Logger) *Engine {
	return &Engine{registry: registry, lg: lg}
}

func (e *Engine) Registry() *aviation.Registry {
	return e.registry
}

// Evaluate returns the governing surface at q. Airports are considered
// in registry order and the first one with a zone containing q is the
// only one that is classified. A nil or panicking Geometry gives an
// error result. q is rounded to 8 decimal places first.
func (e *Engine) Evaluate(q math.Point2LL, g Geometry) (result Result) {
	q = q.Round8()

	if g == nil {
		e.lg.Warn("no geometry provider")
		return errorResult()
	}

	defer func() {
		if err := recover(); err != nil {
			e.lg.Warn("geometry provider failed", slog.Any("panic", err), slog.String("point", q.String()))
			result = errorResult()
		}
	}()

	for ap := range e.registry.All() {
		c := NewClassifier(g, ap)
		zone, d := c.Zone(q)
		if zone == ZoneNone {
			continue
		}

		cl := c.Classify(q, zone, d)
		e.lg.Debug("classified point", slog.String("point", q.String()), slog.String("airport", ap.Id),
			slog.String("zone", zone.String()), slog.Float64("distance", d),
			slog.Int("candidates", len(cl.Candidates)), slog.String("surface", cl.Governing.Kind.String()),
			slog.Float64("height", cl.Governing.HeightM))

		return Result{Items: []Item{{
			AirportId:   ap.Id,
			SurfaceType: cl.Governing.Kind,
			HeightM:     cl.Governing.HeightM,
		}}}
	}

	return emptyResult()
}

// EvaluateSource is Evaluate with the Geometry obtained from src; if src
// fails, the result is an error result.
func (e *Engine) EvaluateSource(q math.Point2LL, src GeometrySource) Result {
	g, err := getGeometry(src)
	if err != nil {
		e.lg.Warn("geometry provider unavailable", slog.Any("error", err))
		return errorResult()
	}
	return e.Evaluate(q, g)
}

func getGeometry(src GeometrySource) (g Geometry, err error) {
	if src == nil {
		return nil, ErrGeometryUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("%v: %w", r, ErrGeometryUnavailable)
		}
	}()

	if g, err = src(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeometryUnavailable, err)
	} else if g == nil {
		return nil, ErrGeometryUnavailable
	}
	return g, nil
}

// Classify returns the full classification of q with respect to the
// given airport, regardless of whether a higher priority airport would
// be used by Evaluate. As with Evaluate, q is rounded first.
func (e *Engine) Classify(airportId string, q math.Point2LL, g Geometry) (cl Classification, err error) {
	ap, ok := e.registry.Get(airportId)
	if !ok {
		return Classification{}, fmt.Errorf("%s: %w", airportId, aviation.ErrUnknownAirport)
	}
	if g == nil {
		return Classification{}, ErrGeometryUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			cl, err = Classification{}, fmt.Errorf("%v: %w", r, ErrGeometryUnavailable)
		}
	}()

	q = q.Round8()
	c := NewClassifier(g, ap)
	zone, d := c.Zone(q)
	return c.Classify(q, zone, d), nil
}

// EvaluateBatch evaluates each of the points concurrently. The results
// are in the same order as the points. An error is only returned if ctx
// is canceled.
func (e *Engine) EvaluateBatch(ctx context.Context, points []math.Point2LL, src GeometrySource) ([]Result, error) {
	results := make([]Result, len(points))

	n := e.BatchConcurrency
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(n)
	for i, p := range points {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.EvaluateSource(p, src)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

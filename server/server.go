// server/server.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package server exposes the restriction engine over HTTP. Each request
// is an independent evaluation; the only state the service keeps is a
// cache of recent results.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	gomath "math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/skyshow/airlimit/geodesy"
	"github.com/skyshow/airlimit/log"
	"github.com/skyshow/airlimit/math"
	"github.com/skyshow/airlimit/restrict"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/vmihailenco/msgpack/v5"
)

const maxRequestBodyBytes = 8 << 20

type cacheKey struct {
	Point    math.Point2LL
	Provider string
}

type Server struct {
	engine   *restrict.Engine
	provider string
	maxBatch int
	timeout  time.Duration
	// nil if caching is disabled
	cache *expirable.LRU[cacheKey, restrict.Result]
	lg    *log.Logger

	startTime         time.Time
	requests          atomic.Int64
	cacheHits         atomic.Int64
	cpuSampleInterval time.Duration
}

func NewServer(engine *restrict.Engine, c Config, lg *log.Logger) (*Server, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}

	s := &Server{
		engine:            engine,
		provider:          providerName(c.Provider),
		maxBatch:          c.MaxBatch,
		timeout:           c.RequestTimeout,
		lg:                lg,
		startTime:         time.Now(),
		cpuSampleInterval: 250 * time.Millisecond,
	}
	if c.CacheSize > 0 {
		s.cache = expirable.NewLRU[cacheKey, restrict.Result](c.CacheSize, nil, c.CacheTTL)
	}

	return s, nil
}

func providerName(name string) string {
	if name == "" {
		return "spherical"
	}
	return strings.ToLower(name)
}

// Handler returns the service's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.logRequests, middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/sup", s.handleStats)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/restriction", s.handleRestriction)
		r.Post("/restriction/batch", s.handleBatch)
		r.Get("/airports", s.handleAirports)
		r.Get("/airports/{id}", s.handleAirport)
		r.Get("/airports/{id}/classification", s.handleClassification)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		s.requests.Add(1)

		next.ServeHTTP(ww, r)

		s.lg.Debug("served request",
			"method", r.Method,
			"url", r.URL.String(),
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}

func wantsMsgpack(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/msgpack") || strings.Contains(accept, "application/x-msgpack")
}

// writeResponse encodes v as msgpack if the client asked for it and as
// JSON otherwise.
func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, v any) {
	var err error
	if wantsMsgpack(r) {
		w.Header().Set("Content-Type", "application/msgpack")
		err = msgpack.NewEncoder(w).Encode(v)
	} else {
		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(v)
	}
	if err != nil {
		s.lg.Warnf("%s: error encoding response: %v", r.URL.String(), err)
	}
}

func checkPoint(p math.Point2LL) error {
	lat, lng := p.Latitude(), p.Longitude()
	if gomath.IsNaN(lat) || gomath.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%s: %w", p, ErrBadPoint)
	}
	return nil
}

// queryPoint returns the point given either as a "point" parameter, as
// in "35.55, 139.78", or as separate "lat" and "lng" parameters.
func queryPoint(r *http.Request) (math.Point2LL, error) {
	q := r.URL.Query()
	if s := q.Get("point"); s != "" {
		p, err := math.ParseLatLong([]byte(s))
		if err != nil {
			return math.Point2LL{}, fmt.Errorf("%w: %v", ErrBadPoint, err)
		}
		return p, checkPoint(p)
	}

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return math.Point2LL{}, fmt.Errorf("%w: \"lat\": %v", ErrBadPoint, err)
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		return math.Point2LL{}, fmt.Errorf("%w: \"lng\": %v", ErrBadPoint, err)
	}

	p := math.LL(lat, lng)
	return p, checkPoint(p)
}

func (s *Server) geometry(name string) (restrict.Geometry, string, error) {
	if name == "" {
		name = s.provider
	}
	g, err := geodesy.Lookup(name)
	if err != nil {
		return nil, "", err
	}
	return g, providerName(name), nil
}

// evaluate returns the result for p, which has already been rounded,
// using the cache if possible. Error results aren't cached.
func (s *Server) evaluate(p math.Point2LL, g restrict.Geometry, provider string) restrict.Result {
	key := cacheKey{Point: p, Provider: provider}
	if s.cache != nil {
		if r, ok := s.cache.Get(key); ok {
			s.cacheHits.Add(1)
			return r
		}
	}

	r := s.engine.Evaluate(p, g)
	if s.cache != nil && !r.Error {
		s.cache.Add(key, r)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reg := s.engine.Registry()
	s.writeResponse(w, r, map[string]any{
		"status":   "ok",
		"registry": reg.Version,
		"airports": reg.Len(),
	})
}

func (s *Server) handleRestriction(w http.ResponseWriter, r *http.Request) {
	p, err := queryPoint(r)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	g, provider, err := s.geometry(r.URL.Query().Get("provider"))
	if err != nil {
		writeJSONError(w, err)
		return
	}

	s.writeResponse(w, r, s.evaluate(p.Round8(), g, provider))
}

type batchPoint struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type batchRequest struct {
	Points   []batchPoint `json:"points"`
	Provider string       `json:"provider,omitempty"`
}

type batchResponse struct {
	Results []restrict.Result `json:"results" msgpack:"results"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, fmt.Errorf("%w: %v", ErrBatchTooLarge, err))
		} else {
			writeJSONError(w, fmt.Errorf("%w: %v", ErrBadRequestBody, err))
		}
		return
	}
	if len(req.Points) > s.maxBatch {
		writeJSONError(w, fmt.Errorf("%d points, limit is %d: %w", len(req.Points), s.maxBatch, ErrBatchTooLarge))
		return
	}

	pts := make([]math.Point2LL, len(req.Points))
	for i, bp := range req.Points {
		if bp.Lat == nil || bp.Lng == nil {
			writeJSONError(w, fmt.Errorf("points[%d]: \"lat\" and \"lng\" must be given: %w", i, ErrBadPoint))
			return
		}
		pts[i] = math.LL(*bp.Lat, *bp.Lng).Round8()
		if err := checkPoint(pts[i]); err != nil {
			writeJSONError(w, fmt.Errorf("points[%d]: %w", i, err))
			return
		}
	}

	provider := req.Provider
	if provider == "" {
		provider = r.URL.Query().Get("provider")
	}
	g, _, err := s.geometry(provider)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	results, err := s.engine.EvaluateBatch(r.Context(), pts, restrict.StaticSource(g))
	if err != nil {
		writeJSONError(w, err)
		return
	}
	s.writeResponse(w, r, batchResponse{Results: results})
}

func (s *Server) handleAirports(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Registry().MarshalJSON()
	if err != nil {
		writeJSONError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (s *Server) handleAirport(w http.ResponseWriter, r *http.Request) {
	ap, err := s.engine.Registry().Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, err)
		return
	}
	s.writeResponse(w, r, ap)
}

type candidateResponse struct {
	Kind    restrict.SurfaceKind `json:"surfaceType" msgpack:"surfaceType"`
	HeightM float64              `json:"heightM" msgpack:"heightM"`
	Runway  string               `json:"runway,omitempty" msgpack:"runway,omitempty"`
	Zone    bool                 `json:"zone,omitempty" msgpack:"zone,omitempty"`
}

type classificationResponse struct {
	AirportId  string              `json:"airportId" msgpack:"airportId"`
	Zone       string              `json:"zone" msgpack:"zone"`
	DistanceM  float64             `json:"distanceM" msgpack:"distanceM"`
	InStrip    bool                `json:"inStrip" msgpack:"inStrip"`
	InApproach bool                `json:"inApproach" msgpack:"inApproach"`
	InExtended bool                `json:"inExtended" msgpack:"inExtended"`
	Candidates []candidateResponse `json:"candidates" msgpack:"candidates"`
	Governing  *candidateResponse  `json:"governing,omitempty" msgpack:"governing,omitempty"`
}

// handleClassification reports every candidate surface at a point for
// one airport, whether or not that airport would be the one used.
func (s *Server) handleClassification(w http.ResponseWriter, r *http.Request) {
	p, err := queryPoint(r)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	g, _, err := s.geometry(r.URL.Query().Get("provider"))
	if err != nil {
		writeJSONError(w, err)
		return
	}

	cl, err := s.engine.Classify(chi.URLParam(r, "id"), p.Round8(), g)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	toResponse := func(c restrict.Candidate) candidateResponse {
		return candidateResponse{Kind: c.Kind, HeightM: c.HeightM, Runway: c.Runway, Zone: c.Zone}
	}
	resp := classificationResponse{
		AirportId:  cl.AirportId,
		Zone:       cl.Zone.String(),
		DistanceM:  cl.Distance,
		InStrip:    cl.InStrip,
		InApproach: cl.InApproach,
		InExtended: cl.InExtended,
		Candidates: []candidateResponse{},
	}
	for _, c := range cl.Candidates {
		resp.Candidates = append(resp.Candidates, toResponse(c))
	}
	if cl.Zone != restrict.ZoneNone {
		gov := toResponse(cl.Governing)
		resp.Governing = &gov
	}

	s.writeResponse(w, r, resp)
}

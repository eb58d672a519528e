// server/server_test.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/geodesy"
	"github.com/skyshow/airlimit/math"
	"github.com/skyshow/airlimit/restrict"

	"github.com/vmihailenco/msgpack/v5"
)

func newTestServer(t *testing.T, modify func(*Config)) (*Server, *httptest.Server) {
	t.Helper()

	c := DefaultConfig()
	if modify != nil {
		modify(&c)
	}
	s, err := NewServer(restrict.NewEngine(aviation.DefaultRegistry(), nil), c, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.cpuSampleInterval = 0

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string, header http.Header) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func pointQuery(p math.Point2LL) string {
	return fmt.Sprintf("lat=%f&lng=%f", p.Latitude(), p.Longitude())
}

func hanedaConical(t *testing.T) math.Point2LL {
	ap, ok := aviation.DefaultRegistry().Get("RJTT")
	if !ok {
		t.Fatal("RJTT missing")
	}
	return math.Offset2LL(ap.ReferencePoint, 270, 5000)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, b := get(t, ts, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var h struct {
		Status   string `json:"status"`
		Registry string `json:"registry"`
		Airports int    `json:"airports"`
	}
	if err := json.Unmarshal(b, &h); err != nil {
		t.Fatal(err)
	}
	if h.Status != "ok" || h.Registry != aviation.DefaultRegistry().Version || h.Airports != aviation.DefaultRegistry().Len() {
		t.Errorf("unexpected health response %+v", h)
	}
}

func TestRestriction(t *testing.T) {
	s, ts := newTestServer(t, nil)
	p := hanedaConical(t)

	resp, b := get(t, ts, "/v1/restriction?"+pointQuery(p), nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("got status %d, content type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	var r restrict.Result
	if err := json.Unmarshal(b, &r); err != nil {
		t.Fatal(err)
	}
	if len(r.Items) != 1 || r.Items[0].AirportId != "RJTT" || r.Items[0].SurfaceType != restrict.Conical {
		t.Fatalf("unexpected result %s", b)
	}

	// The same point given the other way is served from the cache.
	q := url.Values{"point": {fmt.Sprintf("%f, %f", p.Latitude(), p.Longitude())}}
	_, b2 := get(t, ts, "/v1/restriction?"+q.Encode(), nil)
	if !bytes.Equal(b, b2) {
		t.Errorf("results differ: %s vs %s", b, b2)
	}
	if s.cacheHits.Load() != 1 {
		t.Errorf("expected 1 cache hit, got %d", s.cacheHits.Load())
	}

	// A different provider is a different cache entry.
	resp, _ = get(t, ts, "/v1/restriction?provider=orb&"+pointQuery(p), nil)
	if resp.StatusCode != http.StatusOK || s.cacheHits.Load() != 1 {
		t.Errorf("unexpected status %d / cache hits %d", resp.StatusCode, s.cacheHits.Load())
	}

	// Far from everything.
	_, b = get(t, ts, "/v1/restriction?lat=35&lng=138", nil)
	if strings.TrimSpace(string(b)) != `{"items":[]}` {
		t.Errorf("unexpected result %s", b)
	}
}

func TestRestrictionMsgpack(t *testing.T) {
	_, ts := newTestServer(t, func(c *Config) { c.CacheSize = 0 })
	p := hanedaConical(t)

	_, jb := get(t, ts, "/v1/restriction?"+pointQuery(p), nil)
	var jr restrict.Result
	if err := json.Unmarshal(jb, &jr); err != nil {
		t.Fatal(err)
	}

	resp, mb := get(t, ts, "/v1/restriction?"+pointQuery(p), http.Header{"Accept": {"application/msgpack"}})
	if ct := resp.Header.Get("Content-Type"); ct != "application/msgpack" {
		t.Fatalf("got content type %q", ct)
	}
	var mr restrict.Result
	if err := msgpack.Unmarshal(mb, &mr); err != nil {
		t.Fatal(err)
	}

	if len(mr.Items) != 1 || mr.Items[0] != jr.Items[0] || mr.Error != jr.Error {
		t.Errorf("msgpack result %+v differs from JSON %+v", mr, jr)
	}
}

func TestRestrictionErrors(t *testing.T) {
	_, ts := newTestServer(t, nil)

	for _, c := range []struct {
		query  string
		status int
		errstr string
	}{
		{"lat=35.5", http.StatusBadRequest, "lng"},
		{"lat=north&lng=139", http.StatusBadRequest, "lat"},
		{"lat=95&lng=139", http.StatusBadRequest, "Invalid point"},
		{"lat=35&lng=200", http.StatusBadRequest, "Invalid point"},
		{"point=" + url.QueryEscape("somewhere"), http.StatusBadRequest, "Invalid point"},
		{"lat=35&lng=139&provider=mapkit", http.StatusBadRequest, "unknown geometry provider"},
	} {
		resp, b := get(t, ts, "/v1/restriction?"+c.query, nil)
		if resp.StatusCode != c.status {
			t.Errorf("%s: got status %d, expected %d", c.query, resp.StatusCode, c.status)
		}
		var e map[string]string
		if err := json.Unmarshal(b, &e); err != nil {
			t.Errorf("%s: %v", c.query, err)
		} else if !strings.Contains(e["error"], c.errstr) {
			t.Errorf("%s: error %q doesn't contain %q", c.query, e["error"], c.errstr)
		}
	}
}

func post(t *testing.T, ts *httptest.Server, path string, body string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func TestBatch(t *testing.T) {
	_, ts := newTestServer(t, func(c *Config) { c.MaxBatch = 3 })
	p := hanedaConical(t)

	body := fmt.Sprintf(`{"points": [{"lat": %f, "lng": %f}, {"lat": 35, "lng": 138}, {"lat": 34.606, "lng": 135.341}]}`,
		p.Latitude(), p.Longitude())
	resp, b := post(t, ts, "/v1/restriction/batch", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %s", resp.StatusCode, b)
	}

	var br batchResponse
	if err := json.Unmarshal(b, &br); err != nil {
		t.Fatal(err)
	}
	if len(br.Results) != 3 {
		t.Fatalf("expected 3 results, got %s", b)
	}
	if r := br.Results[0]; len(r.Items) != 1 || r.Items[0].SurfaceType != restrict.Conical {
		t.Errorf("unexpected first result %+v", r)
	}
	if r := br.Results[1]; len(r.Items) != 0 || r.Error {
		t.Errorf("unexpected second result %+v", r)
	}
	if r := br.Results[2]; len(r.Items) != 1 || r.Items[0].AirportId != "RJOO" {
		t.Errorf("unexpected third result %+v", r)
	}

	for _, c := range []struct {
		name   string
		body   string
		status int
	}{
		{"too many", `{"points": [{"lat": 1, "lng": 1}, {"lat": 1, "lng": 1}, {"lat": 1, "lng": 1}, {"lat": 1, "lng": 1}]}`,
			http.StatusRequestEntityTooLarge},
		{"missing lng", `{"points": [{"lat": 1}]}`, http.StatusBadRequest},
		{"out of range", `{"points": [{"lat": 91, "lng": 1}]}`, http.StatusBadRequest},
		{"unknown field", `{"points": [], "pionts": []}`, http.StatusBadRequest},
		{"syntax", `{"points": [`, http.StatusBadRequest},
		{"provider", `{"points": [], "provider": "mapkit"}`, http.StatusBadRequest},
	} {
		if resp, b := post(t, ts, "/v1/restriction/batch", c.body); resp.StatusCode != c.status {
			t.Errorf("%s: got status %d, expected %d: %s", c.name, resp.StatusCode, c.status, b)
		}
	}
}

func TestAirports(t *testing.T) {
	_, ts := newTestServer(t, nil)
	def := aviation.DefaultRegistry()

	resp, b := get(t, ts, "/v1/airports", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	reg, err := aviation.ParseRegistryJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(reg.Ids()) != fmt.Sprint(def.Ids()) {
		t.Errorf("airport order %v doesn't match %v", reg.Ids(), def.Ids())
	}

	resp, b = get(t, ts, "/v1/airports/rjtt", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var ap aviation.AirportProfile
	if err := json.Unmarshal(b, &ap); err != nil {
		t.Fatal(err)
	}
	if ap.Id != "RJTT" || len(ap.Runways) == 0 {
		t.Errorf("unexpected profile %s", b)
	}

	if resp, _ := get(t, ts, "/v1/airports/KJFK", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestClassification(t *testing.T) {
	_, ts := newTestServer(t, nil)

	// Kansai applies here too, though Itami has priority.
	q := url.Values{"point": {"34.606, 135.341"}}
	resp, b := get(t, ts, "/v1/airports/RJBB/classification?"+q.Encode(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d: %s", resp.StatusCode, b)
	}
	var cr classificationResponse
	if err := json.Unmarshal(b, &cr); err != nil {
		t.Fatal(err)
	}
	if cr.AirportId != "RJBB" || cr.Zone != "outer horizontal" || cr.Governing == nil ||
		cr.Governing.Kind != restrict.OuterHorizontal || len(cr.Candidates) == 0 {
		t.Errorf("unexpected classification %s", b)
	}

	_, b = get(t, ts, "/v1/airports/RJBB/classification?lat=35&lng=138", nil)
	if err := json.Unmarshal(b, &cr); err != nil {
		t.Fatal(err)
	}
	if cr.Zone != "none" || len(cr.Candidates) != 0 {
		t.Errorf("unexpected classification %s", b)
	}

	if resp, _ := get(t, ts, "/v1/airports/ZZZZ/classification?lat=35&lng=138", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	_, ts := newTestServer(t, nil)
	get(t, ts, "/v1/restriction?"+pointQuery(hanedaConical(t)), nil)

	resp, b := get(t, ts, "/sup?format=json", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var stats serverStats
	if err := json.Unmarshal(b, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Requests < 2 || stats.CacheSize != 1 || stats.NumGoRoutines == 0 ||
		stats.RegistryVersion != aviation.DefaultRegistry().Version || len(stats.Airports) != aviation.DefaultRegistry().Len() {
		t.Errorf("unexpected stats %+v", stats)
	}

	resp, b = get(t, ts, "/sup", nil)
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") || !strings.Contains(string(b), "Server Status") {
		t.Errorf("unexpected stats page %q: %s", resp.Header.Get("Content-Type"), b)
	}
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "airlimitd.yaml")
	yml := `listen: ":9000"
registry: s3://registries/jp/
provider: orb
cache_size: 16
cache_ttl: 10m
s3_region: ap-northeast-1
`
	if err := os.WriteFile(fn, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(fn)
	if err != nil {
		t.Fatal(err)
	}
	if c.Listen != ":9000" || c.Registry != "s3://registries/jp/" || c.Provider != "orb" ||
		c.CacheSize != 16 || c.CacheTTL != 10*time.Minute || c.Remote.S3Region != "ap-northeast-1" {
		t.Errorf("unexpected config %+v", c)
	}
	// Unspecified fields keep their defaults.
	if c.MaxBatch != DefaultConfig().MaxBatch || c.LogLevel != "info" {
		t.Errorf("defaults not kept: %+v", c)
	}
	if err := c.Check(); err != nil {
		t.Errorf("unexpected error %v", err)
	}

	if c, err := LoadConfig(""); err != nil || !reflect.DeepEqual(c, DefaultConfig()) {
		t.Errorf("expected the default config, got %+v %v", c, err)
	}

	if err := os.WriteFile(fn, []byte("lisen: \":9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(fn); err == nil {
		t.Errorf("expected an error for an unknown key")
	}

	bad := DefaultConfig()
	bad.Provider = "mapkit"
	bad.MaxBatch = 0
	bad.LogLevel = "chatty"
	err = bad.Check()
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, s := range []string{"mapkit", "max_batch", "chatty"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("%q not found in %q", s, err)
		}
	}

	if _, err := NewServer(restrict.NewEngine(aviation.DefaultRegistry(), nil), bad, nil); err == nil {
		t.Errorf("expected NewServer to fail with an invalid config")
	}
	if _, err := geodesy.Lookup(DefaultConfig().Provider); err != nil {
		t.Errorf("default provider: %v", err)
	}
}

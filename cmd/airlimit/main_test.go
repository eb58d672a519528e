// cmd/airlimit/main_test.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/geodesy"
	"github.com/skyshow/airlimit/math"
	"github.com/skyshow/airlimit/present"
	"github.com/skyshow/airlimit/restrict"
)

func TestReadPoints(t *testing.T) {
	in := `# Haneda
35.553333, 139.781111

34.606, 135.341
somewhere
35.0,138.0
`
	pts, err := readPoints(strings.NewReader(in), "points.txt")
	if err == nil || !strings.Contains(err.Error(), "points.txt:5") {
		t.Errorf("expected an error for line 5, got %v", err)
	}
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %v", pts)
	}
	if pts[0] != math.LL(35.553333, 139.781111) || pts[2] != math.LL(35, 138) {
		t.Errorf("unexpected points %v", pts)
	}

	pts, err = readPoints(strings.NewReader("\n# nothing\n"), "empty")
	if err != nil || len(pts) != 0 {
		t.Errorf("expected no points and no error, got %v %v", pts, err)
	}
}

func evaluate(t *testing.T, pts []math.Point2LL) (*restrict.Engine, []restrict.Result) {
	eng := restrict.NewEngine(aviation.DefaultRegistry(), nil)
	var results []restrict.Result
	for _, p := range pts {
		results = append(results, eng.Evaluate(p, geodesy.Spherical{}))
	}
	return eng, results
}

func TestWriteResults(t *testing.T) {
	pts := []math.Point2LL{math.LL(34.606, 135.341), math.LL(35, 138)}
	eng, results := evaluate(t, pts)

	var b bytes.Buffer
	if err := writeResults(&b, eng.Registry(), pts, results, outputOptions{JSON: true}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", b.String())
	}
	var r struct {
		Point math.Point2LL   `json:"point"`
		Items []restrict.Item `json:"items"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &r); err != nil {
		t.Fatal(err)
	}
	if r.Point != pts[0] || len(r.Items) != 1 || r.Items[0].AirportId != "RJOO" || r.Items[0].HeightM != 307 {
		t.Errorf("unexpected JSON output %s", lines[0])
	}
	if lines[1] != `{"point":"35, 138","items":[]}` {
		t.Errorf("unexpected JSON output %s", lines[1])
	}

	b.Reset()
	if err := writeResults(&b, eng.Registry(), pts, results, outputOptions{Lang: present.Japanese}); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"大阪国際空港: 外側水平表面, 307m", "対象外"} {
		if !strings.Contains(b.String(), s) {
			t.Errorf("%q not found in %q", s, b.String())
		}
	}
}

func TestExplain(t *testing.T) {
	eng := restrict.NewEngine(aviation.DefaultRegistry(), nil)

	var b bytes.Buffer
	if err := explainPoint(&b, eng, math.LL(34.606, 135.341), geodesy.Spherical{}, outputOptions{}); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "34.606, 135.341 (N034.36.21.600,E135.20.27.600)\n") {
		t.Errorf("unexpected header: %s", out)
	}
	itami, kansai := strings.Index(out, "RJOO:"), strings.Index(out, "RJBB:")
	if itami == -1 || kansai == -1 || kansai < itami {
		t.Fatalf("expected both airports in priority order: %s", out)
	}
	if !strings.Contains(out[kansai:], "(not used)") || strings.Contains(out[:kansai], "(not used)") {
		t.Errorf("only Kansai should be marked unused: %s", out)
	}

	b.Reset()
	if err := explainPoint(&b, eng, math.LL(35, 138), geodesy.Spherical{}, outputOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "no airport zones") {
		t.Errorf("unexpected output %q", b.String())
	}

	haneda, _ := eng.Registry().Get("RJTT")
	b.Reset()
	if err := explainPoint(&b, eng, math.Offset2LL(haneda.ReferencePoint, 270, 5000), geodesy.Spherical{}, outputOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "RJTT: conical zone, 5000 m W of the reference point\n") {
		t.Errorf("unexpected output %q", b.String())
	}
}

func TestLintRegistry(t *testing.T) {
	var b bytes.Buffer
	lintRegistry(&b, aviation.DefaultRegistry(), geodesy.Spherical{})

	out := b.String()
	if !strings.Contains(out, "RJTT") || !strings.Contains(out, "single zone") {
		t.Errorf("unexpected summary %s", out)
	}
	if !strings.Contains(out, "overlaps RJOO") {
		t.Errorf("expected Kansai to be reported as overlapping Itami: %s", out)
	}
}

func TestCompileRegistry(t *testing.T) {
	dir := t.TempDir()
	reg := aviation.DefaultRegistry()

	if err := compileRegistry(reg, filepath.Join(dir, "airports.json")); err == nil {
		t.Errorf("expected an error for a bad filename")
	}

	fn := filepath.Join(dir, reg.Version+".msgpack.zst")
	if err := compileRegistry(reg, fn); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	compiled, err := aviation.LoadRegistry(f, fn)
	if err != nil {
		t.Fatal(err)
	}
	if compiled.Version != reg.Version || strings.Join(compiled.Ids(), ",") != strings.Join(reg.Ids(), ",") {
		t.Errorf("compiled registry %s %v doesn't match", compiled.Version, compiled.Ids())
	}
}

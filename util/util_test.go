// util/util_test.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func TestErrorLogger(t *testing.T) {
	var e ErrorLogger
	if e.HaveErrors() || e.Err() != nil {
		t.Fatalf("fresh ErrorLogger reports errors")
	}

	e.ErrorString("top level %d", 1)
	e.Push("RJTT")
	e.Push("runway 16R/34L")
	e.ErrorString("bad slope %d", 0)
	e.Pop()
	e.Error(errors.New("no name"))
	e.Pop()

	expected := []string{
		"top level 1",
		"RJTT / runway 16R/34L: bad slope 0",
		"RJTT: no name",
	}
	if !slices.Equal(e.Errors(), expected) {
		t.Errorf("got errors %q, expected %q", e.Errors(), expected)
	}
	if e.CurrentDepth() != 0 {
		t.Errorf("depth %d after balanced push/pop", e.CurrentDepth())
	}
	if err := e.Err(); err == nil || err.Error() != strings.Join(expected, "\n") {
		t.Errorf("unexpected Err() %v", err)
	}

	var buf bytes.Buffer
	e.PrintErrors(&buf, nil)
	if buf.String() != strings.Join(expected, "\n")+"\n" {
		t.Errorf("unexpected PrintErrors output %q", buf.String())
	}
}

func TestErrorLoggerCheckDepth(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected a panic for unbalanced Push")
		}
	}()

	var e ErrorLogger
	func() {
		defer e.CheckDepth(e.CurrentDepth())
		e.Push("unbalanced")
	}()
}

func TestFindDuplicateJSONKeys(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected []DuplicateJSONKey
	}{
		{
			name:     "no duplicates",
			json:     `{"a": 1, "b": 2, "c": 3}`,
			expected: nil,
		},
		{
			name: "duplicate airport",
			json: `{"RJTT": {}, "RJAA": {}, "RJTT": {"name": "x"}}`,
			expected: []DuplicateJSONKey{
				{Path: "", Key: "RJTT"},
			},
		},
		{
			name: "duplicate in nested object",
			json: `{"RJTT": {"name": "a", "name": "b"}}`,
			expected: []DuplicateJSONKey{
				{Path: "RJTT", Key: "name"},
			},
		},
		{
			name: "multiple duplicates at different levels",
			json: `{"a": 1, "a": 2, "nested": {"b": [1, 2], "b": {"c": 1}}}`,
			expected: []DuplicateJSONKey{
				{Path: "", Key: "a"},
				{Path: "nested", Key: "b"},
			},
		},
		{
			name:     "array with objects no duplicates",
			json:     `{"runways": [{"id": "04/22"}, {"id": "05/23"}]}`,
			expected: nil,
		},
		{
			name: "duplicate inside array element",
			json: `{"RJTT": {"runways": [{"slope": 50, "slope": 40}]}}`,
			expected: []DuplicateJSONKey{
				{Path: "RJTT.runways", Key: "slope"},
			},
		},
		{
			name:     "malformed",
			json:     `{"a": 1, "a"`,
			expected: []DuplicateJSONKey{{Path: "", Key: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindDuplicateJSONKeys([]byte(tt.json))

			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d duplicates, got %d: %v", len(tt.expected), len(result), result)
			}

			for i, exp := range tt.expected {
				if result[i] != exp {
					t.Errorf("duplicate %d: expected %+v, got %+v", i, exp, result[i])
				}
			}
		})
	}
}

func TestUnmarshalJSONBytesErrors(t *testing.T) {
	var v struct {
		Radius float64 `json:"radius"`
	}

	err := UnmarshalJSONBytes([]byte("{\n  \"radius\": \"far\"\n}"), &v)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected a type error on line 2, got %v", err)
	}

	err = UnmarshalJSON(strings.NewReader("{\n\n  \"radius\": 4000,,\n}"), &v)
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("expected a syntax error on line 3, got %v", err)
	}

	if err := UnmarshalJSONBytes([]byte(`{"radius": 4000}`), &v); err != nil || v.Radius != 4000 {
		t.Errorf("unexpected result %v %v", v, err)
	}
}

type checkedPoint [2]float64

func (p *checkedPoint) CheckJSON(json interface{}) bool {
	_, ok := json.(string)
	return ok
}

func TestCheckJSON(t *testing.T) {
	type runway struct {
		Id    string  `json:"id"`
		Slope float64 `json:"slope"`
	}
	type airport struct {
		Name    string       `json:"name"`
		Ref     checkedPoint `json:"reference_point"`
		Runways []runway     `json:"runways"`
		Skip    int          `json:"-"`
	}

	var e ErrorLogger
	CheckJSON[map[string]airport]([]byte(`{"RJTT": {"name": "Haneda", "reference_point": "35.5, 139.7",
		"runways": [{"id": "16R/34L", "slope": 50}]}}`), &e)
	if e.HaveErrors() {
		t.Errorf("unexpected errors: %s", e.String())
	}

	e = ErrorLogger{}
	CheckJSON[map[string]airport]([]byte(`{"RJTT": {"nmae": "Haneda", "reference_point": [1, 2],
		"runways": [{"id": 16, "slope": 50}]}}`), &e)
	errs := e.Errors()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %q", errs)
	}
	for _, want := range []string{`"nmae"`, "RJTT / reference_point", "RJTT / runways / [0] / id"} {
		if !slices.ContainsFunc(errs, func(s string) bool { return strings.Contains(s, want) }) {
			t.Errorf("no error mentions %s: %q", want, errs)
		}
	}

	e = ErrorLogger{}
	CheckJSON[map[string]airport]([]byte(`{"RJTT": `), &e)
	if !e.HaveErrors() {
		t.Errorf("expected a syntax error")
	}
}

func TestDecompressingReader(t *testing.T) {
	payload := []byte(`{"RJTT": {}}`)

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write(payload)
	zw.Close()

	for _, c := range []struct {
		name string
		data []byte
	}{
		{"airports.json.zst", buf.Bytes()},
		{"airports.json", payload},
	} {
		r, err := NewDecompressingReader(bytes.NewReader(c.data), c.name)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		b, err := io.ReadAll(r)
		r.Close()
		if err != nil || !bytes.Equal(b, payload) {
			t.Errorf("%s: got %q, %v", c.name, b, err)
		}
	}

	if StripZstd("a.msgpack.zst") != "a.msgpack" || StripZstd("a.json") != "a.json" {
		t.Errorf("StripZstd gave unexpected results")
	}
}

func TestEmbeddedResources(t *testing.T) {
	if !ResourceExists("airports.json") {
		t.Fatalf("airports.json is not available")
	}
	if b := LoadResourceBytes("airports.json"); len(b) == 0 || b[0] != '{' {
		t.Errorf("airports.json doesn't look like a JSON object")
	}
	if ResourceExists("nonexistent.json") {
		t.Errorf("nonexistent resource reported as existing")
	}
}

func TestCache(t *testing.T) {
	saved := CacheDir
	CacheDir = t.TempDir()
	defer func() { CacheDir = saved }()

	type entry struct {
		Id     string
		Height float64
	}
	in := []entry{{"RJTT", 45}, {"RJAA", 86.5}}
	if err := CacheStoreObject("registry/test.msgpack", in); err != nil {
		t.Fatal(err)
	}

	var out []entry
	if _, err := CacheRetrieveObject("registry/test.msgpack", &out); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(in, out) {
		t.Errorf("got %v back from the cache, expected %v", out, in)
	}

	// Culling removes the oldest objects first.
	if err := CacheStoreObject("registry/newer.msgpack", in); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(CacheDir, "registry/test.msgpack"), old, old); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(filepath.Join(CacheDir, "registry/newer.msgpack"))
	if err != nil {
		t.Fatal(err)
	}
	if err := CacheCullObjects(fi.Size()); err != nil {
		t.Fatal(err)
	}
	if _, err := CacheRetrieveObject("registry/test.msgpack", &out); err == nil {
		t.Errorf("expected the older object to be culled")
	}
	if _, err := CacheRetrieveObject("registry/newer.msgpack", &out); err != nil {
		t.Errorf("newer object was culled: %v", err)
	}

	if err := CacheCullObjects(0); err != nil {
		t.Fatal(err)
	}
	if _, err := CacheRetrieveObject("registry/newer.msgpack", &out); err == nil {
		t.Errorf("expected culled object to be gone")
	}
}

func TestParseObjectURI(t *testing.T) {
	for _, c := range []struct {
		uri      string
		expected ObjectURI
		err      bool
	}{
		{uri: "airports.json", expected: ObjectURI{Scheme: "file", Key: "airports.json"}},
		{uri: "file:///tmp/a.json", expected: ObjectURI{Scheme: "file", Key: "/tmp/a.json"}},
		{uri: "gs://airlimit-data/registry/2026-04.json.zst",
			expected: ObjectURI{Scheme: "gs", Bucket: "airlimit-data", Key: "registry/2026-04.json.zst"}},
		{uri: "s3://bucket/", expected: ObjectURI{Scheme: "s3", Bucket: "bucket", Key: ""}},
		{uri: "gs:///key", err: true},
		{uri: "ftp://host/file", err: true},
		{uri: "", err: true},
	} {
		o, err := ParseObjectURI(c.uri)
		if (err != nil) != c.err {
			t.Errorf("%q: unexpected error result %v", c.uri, err)
			continue
		}
		if !c.err && o != c.expected {
			t.Errorf("%q: got %+v, expected %+v", c.uri, o, c.expected)
		}
	}

	if _, err := ParseObjectURI("ftp://host/file"); !errors.Is(err, ErrUnsupportedURI) {
		t.Errorf("expected ErrUnsupportedURI, got %v", err)
	}

	if o, _ := ParseObjectURI("gs://b/dir/"); !o.IsDirectory() {
		t.Errorf("gs://b/dir/ should be a directory")
	}
	if o, _ := ParseObjectURI("s3://b/dir/file.json"); o.IsDirectory() {
		t.Errorf("s3://b/dir/file.json should not be a directory")
	}
}

func TestLocalURIs(t *testing.T) {
	dir := t.TempDir()
	for _, fn := range []string{"airports-2025-10.json", "airports-2026-04.json.zst", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, fn), []byte(fn), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	names, err := ListURI(ctx, dir, RemoteConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"airports-2025-10.json", "airports-2026-04.json.zst", "notes.txt"}) {
		t.Errorf("unexpected listing %q", names)
	}

	latest, err := ResolveLatestURI(ctx, dir, RemoteConfig{}, func(name string) bool {
		return strings.HasPrefix(name, "airports-")
	})
	if err != nil {
		t.Fatal(err)
	}
	if latest != filepath.Join(dir, "airports-2026-04.json.zst") {
		t.Errorf("resolved %q", latest)
	}

	r, err := OpenURI(ctx, latest, RemoteConfig{})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(r)
	r.Close()
	if string(b) != "airports-2026-04.json.zst" {
		t.Errorf("read %q", b)
	}

	if _, err := ResolveLatestURI(ctx, dir, RemoteConfig{}, func(string) bool { return false }); err == nil {
		t.Errorf("expected an error when nothing matches")
	}
	if same, err := ResolveLatestURI(ctx, latest, RemoteConfig{}, nil); err != nil || same != latest {
		t.Errorf("a single file should resolve to itself, got %q %v", same, err)
	}
}

func TestGeneric(t *testing.T) {
	m := map[string]int{"RJTT": 1, "RJAA": 2, "RJOO": 3}
	if k := SortedMapKeys(m); !slices.Equal(k, []string{"RJAA", "RJOO", "RJTT"}) {
		t.Errorf("SortedMapKeys gave %v", k)
	}
	if s := MapSlice([]int{1, 2, 3}, func(i int) int { return i * i }); !slices.Equal(s, []int{1, 4, 9}) {
		t.Errorf("MapSlice gave %v", s)
	}
	if MapSlice[int, int](nil, nil) != nil {
		t.Errorf("MapSlice of nil should be nil")
	}
	if s := FilterSlice([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 0 }); !slices.Equal(s, []int{2, 4}) {
		t.Errorf("FilterSlice gave %v", s)
	}
	if Select(true, "a", "b") != "a" || Select(false, "a", "b") != "b" {
		t.Errorf("Select gave unexpected results")
	}
}

// aviation/registry.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/skyshow/airlimit/util"

	"github.com/brunoga/deep"
	"github.com/iancoleman/orderedmap"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Registry is the read-only collection of airport profiles. The order of
// the airports is their dispatch priority: the engine uses the first one
// whose zones contain a query point.
type Registry struct {
	Version string

	order    []string
	airports map[string]*AirportProfile
}

// registryJSON is the on-disk JSON layout. The key order of "airports"
// is significant and is recovered separately.
type registryJSON struct {
	Version  string                    `json:"version"`
	Airports map[string]AirportProfile `json:"airports"`
}

// compiledRegistry is the msgpack layout; profiles are stored in
// priority order with their runway geometry already derived.
type compiledRegistry struct {
	Version  string
	Airports []AirportProfile
}

// NewRegistry validates the given profiles and returns a registry that
// holds them in the given order.
func NewRegistry(version string, profiles []AirportProfile) (*Registry, error) {
	var e util.ErrorLogger
	r := &Registry{Version: version, airports: make(map[string]*AirportProfile)}

	for _, ap := range profiles {
		ap := deep.MustCopy(ap)
		e.Push("Airport " + ap.Id)
		if ap.Id == "" {
			e.ErrorString(`must provide "id"`)
		} else if ap.Id != strings.ToUpper(ap.Id) {
			e.ErrorString("airport identifiers must be upper case")
		} else if _, ok := r.airports[ap.Id]; ok {
			e.ErrorString("airport defined multiple times")
		} else {
			ap.PostDeserialize(ap.Id, &e)
			r.order = append(r.order, ap.Id)
			r.airports[ap.Id] = &ap
		}
		e.Pop()
	}

	if err := e.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseRegistryJSON parses and validates a registry in JSON format.
// Every problem that is found is reported in the returned error.
func ParseRegistryJSON(b []byte) (*Registry, error) {
	var e util.ErrorLogger

	for _, dup := range util.FindDuplicateJSONKeys(b) {
		e.ErrorString("%s: key %q is repeated", util.Select(dup.Path != "", dup.Path, "(top level)"), dup.Key)
	}
	util.CheckJSON[registryJSON](b, &e)
	if err := e.Err(); err != nil {
		return nil, err
	}

	var rj registryJSON
	if err := util.UnmarshalJSONBytes(b, &rj); err != nil {
		return nil, err
	}

	// encoding/json doesn't preserve the order of object keys, so it is
	// recovered with a second pass.
	order := struct {
		Airports *orderedmap.OrderedMap `json:"airports"`
	}{Airports: orderedmap.New()}
	if err := json.Unmarshal(b, &order); err != nil {
		return nil, err
	}

	var profiles []AirportProfile
	for _, id := range order.Airports.Keys() {
		ap := rj.Airports[id]
		if ap.Id == "" {
			ap.Id = id
		} else if ap.Id != id {
			e.ErrorString("Airport %s: \"id\" %q doesn't match registry key", id, ap.Id)
			continue
		}
		profiles = append(profiles, ap)
	}
	if err := e.Err(); err != nil {
		return nil, err
	}

	return NewRegistry(rj.Version, profiles)
}

// LoadRegistry reads a registry from r. The format is determined from
// name's extension: .json, .json.zst or .msgpack.zst.
func LoadRegistry(r io.Reader, name string) (*Registry, error) {
	dr, err := util.NewDecompressingReader(r, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer dr.Close()

	var reg *Registry
	switch base := strings.ToLower(util.StripZstd(name)); {
	case strings.HasSuffix(base, ".json"):
		var b []byte
		if b, err = io.ReadAll(dr); err == nil {
			reg, err = ParseRegistryJSON(b)
		}
	case strings.HasSuffix(base, ".msgpack"):
		var cr compiledRegistry
		if err = msgpack.NewDecoder(dr).Decode(&cr); err == nil {
			reg, err = NewRegistry(cr.Version, cr.Airports)
		}
	default:
		err = fmt.Errorf("unknown registry format")
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return reg, nil
}

// EncodeMsgpack writes the registry to w in the zstd-compressed msgpack
// format that LoadRegistry reads for .msgpack.zst files.
func (r *Registry) EncodeMsgpack(w io.Writer) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	cr := compiledRegistry{Version: r.Version, Airports: r.Profiles()}
	if err := msgpack.NewEncoder(zw).Encode(cr); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// MarshalJSON writes the registry in the layout ParseRegistryJSON reads,
// with the airports in priority order.
func (r *Registry) MarshalJSON() ([]byte, error) {
	airports := orderedmap.New()
	airports.SetEscapeHTML(false)
	for _, ap := range r.Profiles() {
		airports.Set(ap.Id, ap)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		Version  string                 `json:"version"`
		Airports *orderedmap.OrderedMap `json:"airports"`
	}{Version: r.Version, Airports: airports})
	return bytes.TrimSpace(buf.Bytes()), err
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Ids returns the airport identifiers in priority order.
func (r *Registry) Ids() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns a copy of the profile for the given airport.
func (r *Registry) Lookup(id string) (AirportProfile, error) {
	ap, ok := r.airports[strings.ToUpper(id)]
	if !ok {
		return AirportProfile{}, fmt.Errorf("%s: %w", id, ErrUnknownAirport)
	}
	return deep.MustCopy(*ap), nil
}

// Profiles returns copies of all of the profiles in priority order.
func (r *Registry) Profiles() []AirportProfile {
	p := make([]AirportProfile, 0, len(r.order))
	for _, id := range r.order {
		p = append(p, deep.MustCopy(*r.airports[id]))
	}
	return p
}

// Get returns the registry's own profile for the given airport; callers
// must not modify it.
func (r *Registry) Get(id string) (*AirportProfile, bool) {
	ap, ok := r.airports[strings.ToUpper(id)]
	return ap, ok
}

// All iterates over the registry's profiles in priority order without
// copying them; callers must not modify them.
func (r *Registry) All() iter.Seq[*AirportProfile] {
	return func(yield func(*AirportProfile) bool) {
		for _, id := range r.order {
			if !yield(r.airports[id]) {
				return
			}
		}
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry embedded in the resources. It
// panics if it is invalid, which is caught by the tests.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg, err := ParseRegistryJSON(util.LoadResourceBytes("airports.json"))
		if err != nil {
			panic(fmt.Sprintf("airports.json: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

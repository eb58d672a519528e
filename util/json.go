// util/json.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// JSON

// DuplicateJSONKey represents a key that appears more than once in the
// same JSON object. encoding/json silently keeps the last one, which for
// a registry means an airport quietly disappears.
type DuplicateJSONKey struct {
	Path string // dotted path to the object holding the key, e.g. "RJTT.runways"
	Key  string
}

// FindDuplicateJSONKeys walks the token stream of data and returns every
// duplicate object key it finds, in document order. Malformed JSON ends
// the walk early; UnmarshalJSONBytes reports those errors.
func FindDuplicateJSONKeys(data []byte) []DuplicateJSONKey {
	dec := json.NewDecoder(bytes.NewReader(data))
	var dups []DuplicateJSONKey

	var walk func(path []string) error
	walk = func(path []string) error {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			return nil // scalar value
		}

		switch delim {
		case '{':
			seen := make(map[string]bool)
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := kt.(string)
				if seen[key] {
					dups = append(dups, DuplicateJSONKey{Path: strings.Join(path, "."), Key: key})
				}
				seen[key] = true
				if err := walk(append(path, key)); err != nil {
					return err
				}
			}
		case '[':
			for dec.More() {
				if err := walk(path); err != nil {
					return err
				}
			}
		}

		// closing delimiter
		_, err = dec.Token()
		return err
	}
	_ = walk(nil)

	return dups
}

func UnmarshalJSON[T any](r io.Reader, out *T) error {
	// The contents are needed as bytes so that error offsets can be
	// turned into line numbers.
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return UnmarshalJSONBytes(b, out)
}

// UnmarshalJSONBytes unmarshals b into out; syntax and type errors are
// reported with the line and character where they occurred.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	err := json.Unmarshal(b, out)
	if err == nil {
		return nil
	}

	decodeOffset := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	switch jerr := err.(type) {
	case *json.SyntaxError:
		line, char := decodeOffset(jerr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %v", line, char, jerr)

	case *json.UnmarshalTypeError:
		line, char := decodeOffset(jerr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %s value for %s.%s invalid for type %s",
			line, char, jerr.Value, jerr.Struct, jerr.Field, jerr.Type.String())

	default:
		return err
	}
}

///////////////////////////////////////////////////////////////////////////

// CheckJSON checks whether the provided JSON is syntactically valid and
// then typechecks it with respect to the provided type T, so that
// misspelled field names are reported rather than ignored.
func CheckJSON[T any](contents []byte, e *ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	var items interface{}
	if err := UnmarshalJSONBytes(contents, &items); err != nil {
		e.Error(err)
		return
	}

	ty := reflect.TypeOf((*T)(nil)).Elem()
	typeCheckJSON(items, ty, make(map[reflect.Type]map[string]reflect.Type), e)
}

// JSONChecker is implemented by types with custom JSON unmarshalers so
// that they can say whether a raw unmarshaled value is acceptable.
type JSONChecker interface {
	CheckJSON(json interface{}) bool
}

var jsonCheckerType = reflect.TypeOf((*JSONChecker)(nil)).Elem()

func typeCheckJSON(json interface{}, ty reflect.Type, fieldTypes map[reflect.Type]map[string]reflect.Type, e *ErrorLogger) {
	for ty.Kind() == reflect.Ptr {
		ty = ty.Elem()
	}

	if json == nil {
		// null is fine for anything
		return
	}

	if ty.Implements(jsonCheckerType) || reflect.PointerTo(ty).Implements(jsonCheckerType) {
		checker := reflect.New(ty).Interface().(JSONChecker)
		if !checker.CheckJSON(json) {
			e.ErrorString("unexpected data format provided for object: %s", reflect.TypeOf(json))
		}
		return
	}

	mismatch := func() {
		e.ErrorString("unexpected data format provided for object: %s", reflect.TypeOf(json))
	}

	switch ty.Kind() {
	case reflect.Array, reflect.Slice:
		array, ok := json.([]interface{})
		if !ok {
			mismatch()
			return
		}
		for i, item := range array {
			e.Push(fmt.Sprintf("[%d]", i))
			typeCheckJSON(item, ty.Elem(), fieldTypes, e)
			e.Pop()
		}

	case reflect.Map:
		m, ok := json.(map[string]interface{})
		if !ok {
			mismatch()
			return
		}
		for k, v := range m {
			e.Push(k)
			typeCheckJSON(v, ty.Elem(), fieldTypes, e)
			e.Pop()
		}

	case reflect.Struct:
		items, ok := json.(map[string]interface{})
		if !ok {
			mismatch()
			return
		}

		// Cache the JSON name to field type mapping for each struct type.
		types, ok := fieldTypes[ty]
		if !ok {
			types = make(map[string]reflect.Type)
			for _, field := range reflect.VisibleFields(ty) {
				if jtag, ok := field.Tag.Lookup("json"); ok {
					name, _, _ := strings.Cut(jtag, ",")
					if name != "-" {
						types[name] = field.Type
					}
				}
			}
			fieldTypes[ty] = types
		}

		for item, values := range items {
			if fty, ok := types[item]; ok {
				e.Push(item)
				typeCheckJSON(values, fty, fieldTypes, e)
				e.Pop()
			} else {
				e.ErrorString("The entry %q is not an expected JSON object. Is it misspelled?", item)
			}
		}

	case reflect.String:
		if _, ok := json.(string); !ok {
			mismatch()
		}

	case reflect.Bool:
		if _, ok := json.(bool); !ok {
			mismatch()
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if _, ok := json.(float64); !ok {
			mismatch()
		}
	}
}

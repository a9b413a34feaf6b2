// Package codec holds the object codecs used for Object-typed arguments:
// JSON text (optionally carrying the legacy %JSON: prefix) and CBOR blobs.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// JSONPrefix marks a text argument as JSON regardless of the declared type
// of the parameter it binds to.
const JSONPrefix = "%JSON:"

var (
	ErrEmptyObject = errors.New("codec: empty object payload")
	ErrTrailing    = errors.New("codec: trailing data after JSON value")
)

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// HasJSONPrefix reports whether s starts with the legacy JSON marker.
func HasJSONPrefix(s string) bool {
	return strings.HasPrefix(s, JSONPrefix)
}

// DecodeJSON parses s as a single JSON document, stripping the legacy
// prefix when present. Integral numbers decode as int64, others as float64.
func DecodeJSON(s string) (any, error) {
	s = strings.TrimPrefix(s, JSONPrefix)
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyObject
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, ErrTrailing
	}
	return normalize(v), nil
}

// EncodeJSON renders v as prefixed JSON text, the form untyped receivers
// decode back into structured values.
func EncodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(JSONPrefix)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// MarshalObject encodes v as CBOR.
func MarshalObject(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

// UnmarshalObject decodes a CBOR blob into generic Go values. Maps decode as
// map[string]any.
func UnmarshalObject(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, ErrEmptyObject
	}
	var v any
	if err := decMode.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("codec: cbor: %w", err)
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case map[string]any:
		for k, item := range x {
			x[k] = normalize(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalize(item)
		}
		return x
	default:
		return v
	}
}

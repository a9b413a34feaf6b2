package ndarray

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// MaxDepth bounds the nesting of list data, both in JSON documents and in
// array literals.
const MaxDepth = 32

// MaxElements bounds the number of elements a single decoded array may hold.
const MaxElements = 1 << 20

var (
	ErrMissingData = errors.New("ndarray: document has no data field")
	ErrTooDeep     = errors.New("ndarray: nesting too deep")
	ErrTooLarge    = errors.New("ndarray: too many elements")
)

type document struct {
	Data  []float64 `json:"data"`
	DType string    `json:"dtype"`
	Shape []int     `json:"shape"`
}

// MarshalJSON writes the {data, dtype, shape} triple with flat data.
func (a *Array) MarshalJSON() ([]byte, error) {
	data := a.Data
	if data == nil {
		data = []float64{}
	}
	shape := a.Shape
	if shape == nil {
		shape = []int{}
	}
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("ndarray: %v has no JSON form", v)
		}
	}
	return json.Marshal(document{Data: data, DType: a.DType, Shape: shape})
}

// UnmarshalJSON is the inverse of MarshalJSON; see FromJSON.
func (a *Array) UnmarshalJSON(b []byte) error {
	out, err := FromJSON(b)
	if err != nil {
		return err
	}
	*a = *out
	return nil
}

// FromJSON decodes a {data, dtype, shape} document. data may be flat or
// nested; dtype defaults to float32; a missing shape keeps the shape implied
// by the nesting of data.
func FromJSON(b []byte) (*Array, error) {
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return FromMap(doc)
}

// FromMap builds an array from an already decoded JSON object.
func FromMap(doc map[string]any) (*Array, error) {
	raw, ok := doc["data"]
	if !ok {
		return nil, ErrMissingData
	}
	dtype := DefaultDType
	if v, ok := doc["dtype"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("ndarray: dtype must be a string, got %T", v)
		}
		dtype = s
	}
	shape, flat, err := flatten(raw)
	if err != nil {
		return nil, err
	}
	if v, ok := doc["shape"]; ok && v != nil {
		shape, err = shapeOf(v)
		if err != nil {
			return nil, err
		}
	}
	return New(dtype, shape, flat)
}

func shapeOf(v any) ([]int, error) {
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	shape := make([]int, len(list))
	for i, item := range list {
		n, err := scalar(item)
		if _, isBool := item.(bool); err != nil || isBool || n < 0 || n != math.Trunc(n) {
			return nil, fmt.Errorf("ndarray: invalid shape entry %v", item)
		}
		shape[i] = int(n)
	}
	return shape, nil
}

// flatten walks nested []any data, returning its shape and row-major
// elements. Every list at a given depth must have the same length.
func flatten(v any) ([]int, []float64, error) {
	shape := []int{}
	for cur := v; ; {
		list, ok := cur.([]any)
		if !ok {
			break
		}
		if len(shape) >= MaxDepth {
			return nil, nil, ErrTooDeep
		}
		shape = append(shape, len(list))
		if len(list) == 0 {
			break
		}
		cur = list[0]
	}

	out := make([]float64, 0, capacity(shape))
	var walk func(v any, depth int) error
	walk = func(v any, depth int) error {
		if depth == len(shape) {
			if len(out) >= MaxElements {
				return ErrTooLarge
			}
			f, err := scalar(v)
			if err != nil {
				return err
			}
			out = append(out, f)
			return nil
		}
		list, ok := v.([]any)
		if !ok || len(list) != shape[depth] {
			return fmt.Errorf("%w at depth %d", ErrRagged, depth)
		}
		for _, item := range list {
			if err := walk(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(v, 0); err != nil {
		return nil, nil, err
	}
	return shape, out, nil
}

// capacity is the element count implied by shape, clamped to MaxElements.
func capacity(shape []int) int {
	n := 1
	for _, d := range shape {
		if d == 0 {
			return 0
		}
		if n > MaxElements/d {
			return MaxElements
		}
		n *= d
	}
	return n
}

func scalar(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []any:
		return 0, ErrRagged
	default:
		return 0, fmt.Errorf("ndarray: non-numeric element %v (%T)", v, v)
	}
}

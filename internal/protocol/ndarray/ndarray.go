// Package ndarray holds the dense numeric array value carried by NumericArray
// parameters, and the wire forms it travels in: a JSON {data, dtype, shape}
// document, a printed array literal, a raw float32 buffer, and the
// ('ndarray', dtype, *shape, blob) argument convention.
package ndarray

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Supported element type names.
const (
	Bool    = "bool"
	Int8    = "int8"
	Int16   = "int16"
	Int32   = "int32"
	Int64   = "int64"
	Uint8   = "uint8"
	Uint16  = "uint16"
	Uint32  = "uint32"
	Uint64  = "uint64"
	Float16 = "float16"
	Float32 = "float32"
	Float64 = "float64"
)

// DefaultDType is used when a JSON document omits dtype.
const DefaultDType = Float32

var (
	ErrUnknownDType  = errors.New("ndarray: unknown dtype")
	ErrShapeMismatch = errors.New("ndarray: shape does not match element count")
	ErrRagged        = errors.New("ndarray: ragged nested data")
	ErrOutOfRange    = errors.New("ndarray: value out of range for dtype")
)

// Array is a dense row-major numeric array. Elements are stored widened to
// float64 after being cast to DType.
type Array struct {
	DType string
	Shape []int
	Data  []float64
}

// New casts data to dtype and checks that shape covers exactly len(data)
// elements. A nil shape means a 1-D array.
func New(dtype string, shape []int, data []float64) (*Array, error) {
	if !KnownDType(dtype) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDType, dtype)
	}
	if shape == nil {
		shape = []int{len(data)}
	}
	if size(shape) != len(data) {
		return nil, fmt.Errorf("%w: shape %v holds %d elements, got %d", ErrShapeMismatch, shape, size(shape), len(data))
	}
	out := &Array{
		DType: dtype,
		Shape: slices.Clone(shape),
		Data:  make([]float64, len(data)),
	}
	for i, v := range data {
		c, err := cast(dtype, v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Data[i] = c
	}
	return out, nil
}

// KnownDType reports whether name is a supported element type.
func KnownDType(name string) bool {
	switch name {
	case Bool, Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float16, Float32, Float64:
		return true
	}
	return false
}

// Size returns the number of elements.
func (a *Array) Size() int {
	return len(a.Data)
}

// NDim returns the number of dimensions.
func (a *Array) NDim() int {
	return len(a.Shape)
}

// At returns the element at the given multi-dimensional index.
func (a *Array) At(idx ...int) (float64, error) {
	if len(idx) != len(a.Shape) {
		return 0, fmt.Errorf("ndarray: index has %d dims, array has %d", len(idx), len(a.Shape))
	}
	flat := 0
	for i, n := range idx {
		if n < 0 || n >= a.Shape[i] {
			return 0, fmt.Errorf("ndarray: index %d out of bounds for axis %d with size %d", n, i, a.Shape[i])
		}
		flat = flat*a.Shape[i] + n
	}
	return a.Data[flat], nil
}

// Reshape changes the shape in place; the element count must not change.
func (a *Array) Reshape(shape ...int) error {
	if size(shape) != len(a.Data) {
		return fmt.Errorf("%w: cannot reshape %d elements into %v", ErrShapeMismatch, len(a.Data), shape)
	}
	a.Shape = slices.Clone(shape)
	return nil
}

// Equal compares dtype, shape and elements. NaN elements compare equal.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.DType != b.DType || len(a.Shape) != len(b.Shape) || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	for i := range a.Data {
		x, y := a.Data[i], b.Data[i]
		if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
			return false
		}
	}
	return true
}

func (a *Array) String() string {
	return fmt.Sprintf("ndarray(dtype=%s, shape=%v)", a.DType, a.Shape)
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return -1
		}
		n *= d
	}
	return n
}

func isIntDType(dtype string) bool {
	switch dtype {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

func intBounds(dtype string) (float64, float64) {
	switch dtype {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Int64:
		return math.MinInt64, math.MaxInt64
	case Uint8:
		return 0, math.MaxUint8
	case Uint16:
		return 0, math.MaxUint16
	case Uint32:
		return 0, math.MaxUint32
	default:
		return 0, math.MaxUint64
	}
}

func cast(dtype string, v float64) (float64, error) {
	switch {
	case dtype == Float64:
		return v, nil
	case dtype == Float32 || dtype == Float16:
		return float64(float32(v)), nil
	case dtype == Bool:
		if v != 0 {
			return 1, nil
		}
		return 0, nil
	case isIntDType(dtype):
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %v as %s", ErrOutOfRange, v, dtype)
		}
		t := math.Trunc(v)
		lo, hi := intBounds(dtype)
		if t < lo || t > hi {
			return 0, fmt.Errorf("%w: %v as %s", ErrOutOfRange, v, dtype)
		}
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDType, dtype)
}

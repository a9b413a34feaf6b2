package ndarray

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

// ArgsTag is the leading argument of the ('ndarray', dtype, *shape, blob)
// message convention.
const ArgsTag = "ndarray"

var (
	ErrBlobLength = errors.New("ndarray: blob length is not a multiple of the element size")
	ErrShortBlob  = errors.New("ndarray: blob shorter than its size prefix")
	ErrBadArgs    = errors.New("ndarray: malformed ndarray arguments")
)

// FromFloat32Blob reads b as a flat little-endian float32 buffer and returns
// a 1-D float32 array.
func FromFloat32Blob(b []byte) (*Array, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlobLength, len(b))
	}
	if len(b)/4 > MaxElements {
		return nil, ErrTooLarge
	}
	data := make([]float64, len(b)/4)
	for i := range data {
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return &Array{DType: Float32, Shape: []int{len(data)}, Data: data}, nil
}

// EncodeBlob frames data as an OSC blob: a big-endian uint32 size, the
// bytes, then zero padding to a 4-byte boundary.
func EncodeBlob(data []byte) []byte {
	pad := (4 - len(data)%4) % 4
	out := make([]byte, 4+len(data)+pad)
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], data)
	return out
}

// DecodeBlob strips the OSC blob framing written by EncodeBlob.
func DecodeBlob(b []byte) ([]byte, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortBlob, len(b))
	}
	n := binary.BigEndian.Uint32(b)
	if uint64(len(b)-4) < uint64(n) {
		return nil, fmt.Errorf("%w: have %d, size says %d", ErrShortBlob, len(b)-4, n)
	}
	return b[4 : 4+n], nil
}

// Bytes packs the elements in little-endian order using the width of DType.
// float16 has no packed form here.
func (a *Array) Bytes() ([]byte, error) {
	width, err := itemSize(a.DType)
	if err != nil {
		return nil, err
	}
	out := make([]byte, width*len(a.Data))
	for i, v := range a.Data {
		b := out[i*width:]
		switch a.DType {
		case Float32:
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		case Float64:
			binary.LittleEndian.PutUint64(b, math.Float64bits(v))
		case Bool, Int8, Uint8:
			b[0] = byte(int64(v))
		case Int16, Uint16:
			binary.LittleEndian.PutUint16(b, uint16(int64(v)))
		case Int32, Uint32:
			binary.LittleEndian.PutUint32(b, uint32(int64(v)))
		case Int64:
			binary.LittleEndian.PutUint64(b, uint64(int64(v)))
		case Uint64:
			binary.LittleEndian.PutUint64(b, uint64(v))
		}
	}
	return out, nil
}

// FromBytes unpacks little-endian elements of dtype and reshapes them.
func FromBytes(dtype string, shape []int, b []byte) (*Array, error) {
	width, err := itemSize(dtype)
	if err != nil {
		return nil, err
	}
	if len(b)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes of %s", ErrBlobLength, len(b), dtype)
	}
	if len(b)/width > MaxElements {
		return nil, ErrTooLarge
	}
	data := make([]float64, len(b)/width)
	for i := range data {
		p := b[i*width:]
		switch dtype {
		case Float32:
			data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
		case Float64:
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(p))
		case Bool:
			if p[0] != 0 {
				data[i] = 1
			}
		case Int8:
			data[i] = float64(int8(p[0]))
		case Uint8:
			data[i] = float64(p[0])
		case Int16:
			data[i] = float64(int16(binary.LittleEndian.Uint16(p)))
		case Uint16:
			data[i] = float64(binary.LittleEndian.Uint16(p))
		case Int32:
			data[i] = float64(int32(binary.LittleEndian.Uint32(p)))
		case Uint32:
			data[i] = float64(binary.LittleEndian.Uint32(p))
		case Int64:
			data[i] = float64(int64(binary.LittleEndian.Uint64(p)))
		case Uint64:
			data[i] = float64(binary.LittleEndian.Uint64(p))
		}
	}
	if shape == nil {
		shape = []int{len(data)}
	}
	if size(shape) != len(data) {
		return nil, fmt.Errorf("%w: shape %v for %d elements", ErrShapeMismatch, shape, len(data))
	}
	return &Array{DType: dtype, Shape: slices.Clone(shape), Data: data}, nil
}

// ToOSCArgs encodes a as ('ndarray', dtype, dim0, dim1, ..., blob).
func ToOSCArgs(a *Array) ([]any, error) {
	raw, err := a.Bytes()
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(a.Shape)+3)
	args = append(args, ArgsTag, a.DType)
	for _, d := range a.Shape {
		args = append(args, int32(d))
	}
	return append(args, EncodeBlob(raw)), nil
}

// IsOSCArgs reports whether args follow the ('ndarray', ...) convention.
func IsOSCArgs(args []any) bool {
	if len(args) < 3 {
		return false
	}
	tag, ok := args[0].(string)
	return ok && tag == ArgsTag
}

// FromOSCArgs is the inverse of ToOSCArgs.
func FromOSCArgs(args []any) (*Array, error) {
	if !IsOSCArgs(args) {
		return nil, fmt.Errorf("%w: want ('%s', dtype, *shape, blob)", ErrBadArgs, ArgsTag)
	}
	dtype, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: dtype is %T", ErrBadArgs, args[1])
	}
	blob, ok := args[len(args)-1].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: last argument is %T, want blob", ErrBadArgs, args[len(args)-1])
	}
	shape := make([]int, 0, len(args)-3)
	for _, v := range args[2 : len(args)-1] {
		var d int64
		switch x := v.(type) {
		case int32:
			d = int64(x)
		case int64:
			d = x
		case int:
			d = int64(x)
		default:
			return nil, fmt.Errorf("%w: shape entry is %T", ErrBadArgs, v)
		}
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrBadArgs, d)
		}
		shape = append(shape, int(d))
	}
	raw, err := DecodeBlob(blob)
	if err != nil {
		return nil, err
	}
	return FromBytes(dtype, shape, raw)
}

func itemSize(dtype string) (int, error) {
	switch dtype {
	case Bool, Int8, Uint8:
		return 1, nil
	case Int16, Uint16:
		return 2, nil
	case Int32, Uint32, Float32:
		return 4, nil
	case Int64, Uint64, Float64:
		return 8, nil
	case Float16:
		return 0, fmt.Errorf("ndarray: no packed form for %s", dtype)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDType, dtype)
}

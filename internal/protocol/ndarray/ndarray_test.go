package ndarray

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromJSONReshapesFlatData(t *testing.T) {
	a, err := FromJSON([]byte(`{"data":[1,2,3,4,5,6],"dtype":"int32","shape":[2,3]}`))
	require.NoError(t, err)
	require.Equal(t, Int32, a.DType)
	require.Equal(t, []int{2, 3}, a.Shape)

	v, err := a.At(1, 2)
	require.NoError(t, err)
	require.Equal(t, 6.0, v)
}

func TestFromJSONDefaultsAndNestedData(t *testing.T) {
	a, err := FromJSON([]byte(`{"data":[[0.5,1],[2,3]]}`))
	require.NoError(t, err)
	require.Equal(t, DefaultDType, a.DType)
	require.Equal(t, []int{2, 2}, a.Shape)
	require.Equal(t, []float64{0.5, 1, 2, 3}, a.Data)
}

func TestFromJSONErrors(t *testing.T) {
	cases := []struct {
		doc  string
		want error
	}{
		{`{"dtype":"float32"}`, ErrMissingData},
		{`{"data":[1,2,3],"shape":[2,2]}`, ErrShapeMismatch},
		{`{"data":[[1,2],[3]]}`, ErrRagged},
		{`{"data":[1,2],"dtype":"complex256"}`, ErrUnknownDType},
		{`{"data":[300],"dtype":"uint8"}`, ErrOutOfRange},
	}
	for _, tc := range cases {
		_, err := FromJSON([]byte(tc.doc))
		require.ErrorIs(t, err, tc.want, tc.doc)
	}
}

func TestJSONRoundTripKeepsShape(t *testing.T) {
	a, err := New(Float64, []int{3, 1}, []float64{1.25, -2, 3})
	require.NoError(t, err)
	b, err := a.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"data":[1.25,-2,3],"dtype":"float64","shape":[3,1]}`, string(b))

	back, err := FromJSON(b)
	require.NoError(t, err)
	require.True(t, a.Equal(back))
}

func TestNewCastsToDType(t *testing.T) {
	a, err := New(Int16, nil, []float64{1.9, -1.9})
	require.NoError(t, err)
	require.Equal(t, []float64{1, -1}, a.Data)

	b, err := New(Bool, nil, []float64{0, 2})
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, b.Data)

	_, err = New(Int32, nil, []float64{math.NaN()})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestParseLiteralPrintedArray(t *testing.T) {
	a, err := ParseLiteral("array([[1., 2.],\n       [3., 4.]], dtype=float32)")
	require.NoError(t, err)
	require.Equal(t, Float32, a.DType)
	require.Equal(t, []int{2, 2}, a.Shape)
	require.Equal(t, []float64{1, 2, 3, 4}, a.Data)

	a, err = ParseLiteral("np.array([1, -2, 3e2], dtype='np.int64')")
	require.NoError(t, err)
	require.Equal(t, Int64, a.DType)
	require.Equal(t, []float64{1, -2, 300}, a.Data)
}

func TestParseLiteralInfersDType(t *testing.T) {
	cases := []struct {
		in    string
		dtype string
		shape []int
	}{
		{"[1, 2, 3]", Int64, []int{3}},
		{"array([1., 2, 3])", Float64, []int{3}},
		{"array([ True, False])", Bool, []int{2}},
		{"array([nan, -inf, 1])", Float64, []int{3}},
		{"[]", Float64, []int{0}},
		{"array(5)", Int64, []int{}},
		{"[[1, 2,], [3, 4]]", Int64, []int{2, 2}},
	}
	for _, tc := range cases {
		a, err := ParseLiteral(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.dtype, a.DType, tc.in)
		require.Equal(t, tc.shape, a.Shape, tc.in)
	}
}

func TestParseLiteralRejectsExpressions(t *testing.T) {
	for _, in := range []string{
		"__import__('os').system('true')",
		"array([1, 2]) + 1",
		"array([1, 2], order='C')",
		"array([1, ...])",
		"[1, [2]]",
		"[1 2]",
		"array([1], dtype=object)",
		"",
	} {
		_, err := ParseLiteral(in)
		require.Error(t, err, in)
	}
}

func TestParseLiteralBounds(t *testing.T) {
	deep := strings.Repeat("[", MaxDepth+1) + "1" + strings.Repeat("]", MaxDepth+1)
	_, err := ParseLiteral(deep)
	require.ErrorIs(t, err, ErrTooDeep)

	ok := strings.Repeat("[", MaxDepth) + "1" + strings.Repeat("]", MaxDepth)
	a, err := ParseLiteral(ok)
	require.NoError(t, err)
	require.Equal(t, MaxDepth, a.NDim())
}

func TestFromFloat32Blob(t *testing.T) {
	raw := make([]byte, 12)
	for i, v := range []float32{1.5, -2, 0.25} {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	a, err := FromFloat32Blob(raw)
	require.NoError(t, err)
	require.Equal(t, Float32, a.DType)
	require.Equal(t, []int{3}, a.Shape)
	require.Equal(t, []float64{1.5, -2, 0.25}, a.Data)

	_, err = FromFloat32Blob(raw[:5])
	require.ErrorIs(t, err, ErrBlobLength)
}

func TestBlobFraming(t *testing.T) {
	framed := EncodeBlob([]byte{1, 2, 3, 4, 5})
	require.Len(t, framed, 12)
	require.Equal(t, []byte{0, 0, 0, 5}, framed[:4])

	data, err := DecodeBlob(framed)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, data)

	_, err = DecodeBlob(framed[:6])
	require.True(t, errors.Is(err, ErrShortBlob))
}

func TestOSCArgsRoundTrip(t *testing.T) {
	a, err := New(Int16, []int{2, 2}, []float64{-1, 2, -300, 4})
	require.NoError(t, err)

	args, err := ToOSCArgs(a)
	require.NoError(t, err)
	require.Equal(t, []any{"ndarray", "int16", int32(2), int32(2)}, args[:4])
	require.True(t, IsOSCArgs(args))

	back, err := FromOSCArgs(args)
	require.NoError(t, err)
	require.True(t, a.Equal(back))

	_, err = FromOSCArgs([]any{"ndarray", "float32", "x", []byte{}})
	require.ErrorIs(t, err, ErrBadArgs)
}

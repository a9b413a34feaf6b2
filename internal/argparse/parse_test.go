package argparse

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/osclink/internal/protocol/codec"
	"github.com/danmuck/osclink/internal/protocol/ndarray"
	"github.com/danmuck/osclink/internal/protocol/token"
	"github.com/danmuck/osclink/internal/signature"
)

func mustSig(t *testing.T, opts signature.Options, params ...signature.Param) *signature.Signature {
	t.Helper()
	sig, err := signature.Build(params, opts)
	require.NoError(t, err)
	return sig
}

func toks(t *testing.T, vs ...any) []token.Token {
	t.Helper()
	out, err := token.Values(vs...)
	require.NoError(t, err)
	return out
}

func TestUnboundedSplatsStopAtKey(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "x", Type: signature.SplatAll()},
		signature.Param{Name: "y", Type: signature.SplatAll()},
	)
	res, err := Parse(toks(t, 1, 2, 3, "y", "a", "b", "c"), sig)
	require.NoError(t, err)
	require.Equal(t, []any{[]any{int64(1), int64(2), int64(3)}}, res.Positional)
	require.Equal(t, map[string]any{"y": []any{"a", "b", "c"}}, res.Keyword)
}

func TestMixedSplatVarargsAndKeywords(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "x", Type: signature.Splat(3)},
		signature.Param{Name: "items", Kind: signature.VarPositional},
		signature.Param{Name: "y", Type: signature.SplatAll(), HasDefault: true, Default: []any{}},
		signature.Param{Name: "z", Type: signature.Object(), HasDefault: true},
	)
	in := toks(t, 1, 2, 3, 777, nil, "abc", []any{1, 2, 3}, "y", "a", "b", "c")

	res, err := Parse(in, sig)
	require.NoError(t, err)
	require.Equal(t, []any{
		[]any{int64(1), int64(2), int64(3)},
		int64(777),
		nil,
		"abc",
		[]any{int64(1), int64(2), int64(3)},
	}, res.Positional)
	require.Equal(t, map[string]any{"y": []any{"a", "b", "c"}}, res.Keyword)
	_, hasZ := res.Keyword["z"]
	require.False(t, hasZ)
}

func TestFixedSplatIgnoresKeys(t *testing.T) {
	for n := 1; n <= 5; n++ {
		sig := mustSig(t, signature.Options{},
			signature.Param{Name: "x", Type: signature.Splat(n)},
			signature.Param{Name: "y", HasDefault: true},
		)
		vals := make([]any, 0, n+2)
		want := make([]any, 0, n)
		for i := 0; i < n; i++ {
			var v any = int64(i)
			if i%2 == 1 {
				v = "y"
			}
			vals = append(vals, v)
			want = append(want, v)
		}
		vals = append(vals, "y", 1.5)

		res, err := Parse(toks(t, vals...), sig)
		require.NoError(t, err, "n=%d", n)
		require.Equal(t, []any{want}, res.Positional, "n=%d", n)
		require.Equal(t, map[string]any{"y": 1.5}, res.Keyword, "n=%d", n)
	}
}

func TestFixedSplatWithVarKeyword(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "x", Type: signature.Splat(2)},
		signature.Param{Name: "kw", Kind: signature.VarKeyword},
	)
	res, err := Parse(toks(t, "p", "q", "r", 1), sig)
	require.NoError(t, err)
	require.Equal(t, []any{[]any{"p", "q"}}, res.Positional)
	require.Equal(t, map[string]any{"r": int64(1)}, res.Keyword)
}

func TestKeywordSplatStopsAtExtraKey(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "x", Type: signature.Splat(2)},
		signature.Param{Name: "y", Type: signature.SplatAll(), HasDefault: true},
		signature.Param{Name: "kw", Kind: signature.VarKeyword},
	)
	res, err := Parse(toks(t, "y", 1, "r", 2), sig)
	require.NoError(t, err)
	require.Empty(t, res.Positional)
	require.Equal(t, map[string]any{"y": []any{int64(1)}, "r": int64(2)}, res.Keyword)
}

func TestTruncatedSplat(t *testing.T) {
	sig := mustSig(t, signature.Options{}, signature.Param{Name: "x", Type: signature.Splat(3)})
	_, err := Parse(toks(t, 1, 2), sig)
	require.ErrorIs(t, err, ErrTruncatedSplat)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "x", perr.Param)
}

func TestNoPositionalAfterKeyword(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "a"},
		signature.Param{Name: "b", HasDefault: true},
		signature.Param{Name: "c", HasDefault: true},
	)
	_, err := Parse(toks(t, "b", 2, 3), sig)
	require.ErrorIs(t, err, ErrPositionalAfterKeyword)

	_, err = Parse(toks(t, 1, "c", 3, 4), sig)
	require.ErrorIs(t, err, ErrPositionalAfterKeyword)

	res, err := Parse(toks(t, 1, 2, "c", 3), sig)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), int64(2)}, res.Positional)
	require.Equal(t, map[string]any{"c": int64(3)}, res.Keyword)
}

func TestTooManyPositional(t *testing.T) {
	sig := mustSig(t, signature.Options{}, signature.Param{Name: "a"})
	_, err := Parse(toks(t, 1, 2), sig)
	require.ErrorIs(t, err, ErrTooManyPositional)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 1, perr.Index)
}

func TestMissingValueForKey(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "a"},
		signature.Param{Name: "b", HasDefault: true},
	)
	_, err := Parse(toks(t, 1, "b"), sig)
	require.ErrorIs(t, err, ErrMissingValueForKey)
}

func TestLegacyJSONPrefixAnyDeclaredType(t *testing.T) {
	for _, typ := range []signature.DeclaredType{signature.Any(), signature.String(), signature.Int(), signature.Object()} {
		sig := mustSig(t, signature.Options{}, signature.Param{Name: "v", Type: typ})
		res, err := Parse(toks(t, `%JSON:{"key":0}`), sig)
		require.NoError(t, err, typ.String())
		require.Equal(t, []any{map[string]any{"key": int64(0)}}, res.Positional, typ.String())
	}

	sig := mustSig(t, signature.Options{}, signature.Param{Name: "v"})
	_, err := Parse(toks(t, "%JSON:{nope"), sig)
	require.ErrorIs(t, err, ErrMalformedObject)
}

func TestLegacyJSONPromotesArrayDocument(t *testing.T) {
	sig := mustSig(t, signature.Options{}, signature.Param{Name: "v"})
	res, err := Parse(toks(t, `%JSON:{"data":[1,2],"dtype":"float64","shape":[2]}`), sig)
	require.NoError(t, err)
	arr, ok := res.Positional[0].(*ndarray.Array)
	require.True(t, ok)
	require.Equal(t, []float64{1, 2}, arr.Data)
}

func TestEmptyInputNiladic(t *testing.T) {
	sig := mustSig(t, signature.Options{})
	res, err := Parse(nil, sig)
	require.NoError(t, err)
	require.Equal(t, []any{}, res.Positional)
	require.Equal(t, map[string]any{}, res.Keyword)
}

func TestLongSequenceStable(t *testing.T) {
	sig := mustSig(t, signature.Options{}, signature.Param{Name: "items", Kind: signature.VarPositional})
	in := make([]token.Token, 1024)
	want := make([]any, 1024)
	for i := range in {
		in[i] = token.Int(1)
		want[i] = int64(1)
	}
	res, err := Parse(in, sig)
	require.NoError(t, err)
	require.Equal(t, want, res.Positional)
}

func TestLongUnboundedSplat(t *testing.T) {
	sig := mustSig(t, signature.Options{}, signature.Param{Name: "items", Type: signature.SplatAll()})
	in := make([]token.Token, 1024)
	for i := range in {
		in[i] = token.Int(1)
	}
	res, err := Parse(in, sig)
	require.NoError(t, err)
	require.Len(t, res.Positional, 1)
	require.Len(t, res.Positional[0], 1024)
}

func TestDeclaredNameIsAlwaysKey(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "a", Type: signature.String()},
		signature.Param{Name: "y", Type: signature.String()},
	)
	_, err := Parse(toks(t, "y", "q"), sig)
	require.NoError(t, err)

	res, err := Parse(toks(t, "y", "q", "a", "y"), sig)
	require.NoError(t, err)
	require.Empty(t, res.Positional)
	require.Equal(t, map[string]any{"y": "q", "a": "y"}, res.Keyword)
}

func TestEmptySplatBeforeKey(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "x", Type: signature.SplatAll(), HasDefault: true},
		signature.Param{Name: "y", Type: signature.SplatAll(), HasDefault: true},
		signature.Param{Name: "z", HasDefault: true},
	)
	res, err := Parse(toks(t, "y", "z", 1), sig)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"y": []any{}, "z": int64(1)}, res.Keyword)
}

func TestKeywordsDisabled(t *testing.T) {
	sig := mustSig(t, signature.Options{Keywords: signature.BoolOpt(false)},
		signature.Param{Name: "a"},
		signature.Param{Name: "b"},
	)
	res, err := Parse(toks(t, "b", "a"), sig)
	require.NoError(t, err)
	require.Equal(t, []any{"b", "a"}, res.Positional)

	splat := mustSig(t, signature.Options{Keywords: signature.BoolOpt(false)},
		signature.Param{Name: "xs", Type: signature.SplatAll()},
		signature.Param{Name: "b"},
	)
	_, err = Parse(toks(t, 1, 2), splat)
	require.ErrorIs(t, err, ErrAmbiguousSplat)

	tail := mustSig(t, signature.Options{Keywords: signature.BoolOpt(false)},
		signature.Param{Name: "b"},
		signature.Param{Name: "xs", Type: signature.SplatAll()},
	)
	res, err = Parse(toks(t, 1, "xs", 3), tail)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), []any{"xs", int64(3)}}, res.Positional)
}

func TestKeywordStyleHandlerAcceptsUnknownKeys(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "gain", HasDefault: true, Default: 1.0},
		signature.Param{Name: "extra", Kind: signature.VarKeyword},
	)
	require.False(t, sig.PositionalParsing)

	res, err := Parse(toks(t, "gain", 0.5, "mode", "loop"), sig)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"gain": 0.5, "mode": "loop"}, res.Keyword)

	_, err = Parse(toks(t, 0.5), sig)
	require.ErrorIs(t, err, ErrTooManyPositional)

	noKw := mustSig(t, signature.Options{}, signature.Param{Name: "gain", HasDefault: true})
	res, err = Parse(toks(t, "other", 2), noKw)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"other": int64(2)}, res.Keyword)
}

func TestVarKeywordMakesTextKeys(t *testing.T) {
	sig := mustSig(t, signature.Options{},
		signature.Param{Name: "a"},
		signature.Param{Name: "kw", Kind: signature.VarKeyword},
	)
	res, err := Parse(toks(t, 1, "free", "form"), sig)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1)}, res.Positional)
	require.Equal(t, map[string]any{"free": "form"}, res.Keyword)
}

func TestObjectDecoding(t *testing.T) {
	sig := mustSig(t, signature.Options{}, signature.Param{Name: "z", Type: signature.Object()})

	res, err := Parse(toks(t, `{"key":0,"key2":[0,1,2],"key3":{}}`), sig)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"key":  int64(0),
		"key2": []any{int64(0), int64(1), int64(2)},
		"key3": map[string]any{},
	}, res.Positional[0])

	blob, err := codec.MarshalObject(map[string]any{"k": "v"})
	require.NoError(t, err)
	res, err = Parse([]token.Token{token.Blob(blob)}, sig)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"k": "v"}, res.Positional[0])

	res, err = Parse([]token.Token{token.Nil()}, sig)
	require.NoError(t, err)
	require.Equal(t, []any{nil}, res.Positional)

	_, err = Parse(toks(t, "{not json"), sig)
	require.ErrorIs(t, err, ErrMalformedObject)
	_, err = Parse([]token.Token{token.Blob([]byte{0xff})}, sig)
	require.ErrorIs(t, err, ErrMalformedObject)
}

func TestNumericArrayDecoding(t *testing.T) {
	sig := mustSig(t, signature.Options{}, signature.Param{Name: "arr", Type: signature.NumericArray()})

	res, err := Parse(toks(t, `{"data":[[1,2],[3,4]],"dtype":"int8","shape":[4]}`), sig)
	require.NoError(t, err)
	arr := res.Positional[0].(*ndarray.Array)
	require.Equal(t, ndarray.Int8, arr.DType)
	require.Equal(t, []int{4}, arr.Shape)

	res, err = Parse(toks(t, "array([0.5, 1.5], dtype=float32)"), sig)
	require.NoError(t, err)
	arr = res.Positional[0].(*ndarray.Array)
	require.Equal(t, []float64{0.5, 1.5}, arr.Data)

	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw, math.Float32bits(3))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-1))
	res, err = Parse([]token.Token{token.Blob(raw)}, sig)
	require.NoError(t, err)
	arr = res.Positional[0].(*ndarray.Array)
	require.Equal(t, []float64{3, -1}, arr.Data)

	for _, bad := range []token.Token{
		token.Text(`{"dtype":"float32"}`),
		token.Text("os.system('x')"),
		token.Blob([]byte{1, 2, 3}),
	} {
		_, err = Parse([]token.Token{bad}, sig)
		require.ErrorIs(t, err, ErrMalformedNumericArray, bad.String())
	}
}

func TestParseErrorMessage(t *testing.T) {
	sig := mustSig(t, signature.Options{}, signature.Param{Name: "a"})
	_, err := Parse(toks(t, 1, "x"), sig)
	require.EqualError(t, err, fmt.Sprintf("%s at token 1 %q", ErrTooManyPositional, "x"))
}

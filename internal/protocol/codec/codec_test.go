package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJSONStripsLegacyPrefix(t *testing.T) {
	v, err := DecodeJSON(`%JSON:{"key":0}`)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"key": int64(0)}, v)

	v, err = DecodeJSON(`[1, 2.5, "x", null, {"a": [true]}]`)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), 2.5, "x", nil, map[string]any{"a": []any{true}}}, v)
}

func TestDecodeJSONErrors(t *testing.T) {
	for _, in := range []string{"", "%JSON:", "{", `{"a":1} {"b":2}`, "not json"} {
		_, err := DecodeJSON(in)
		require.Error(t, err, in)
	}
}

func TestEncodeJSONIsPrefixed(t *testing.T) {
	s, err := EncodeJSON(map[string]any{"a": "<b>"})
	require.NoError(t, err)
	require.Equal(t, `%JSON:{"a":"<b>"}`, s)

	back, err := DecodeJSON(s)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": "<b>"}, back)
}

func TestObjectCBOR(t *testing.T) {
	in := map[string]any{
		"name":  "synth",
		"gain":  0.5,
		"voice": []any{int64(1), int64(-2)},
	}
	b, err := MarshalObject(in)
	require.NoError(t, err)

	out, err := UnmarshalObject(b)
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = UnmarshalObject(nil)
	require.ErrorIs(t, err, ErrEmptyObject)
	_, err = UnmarshalObject([]byte{0xff, 0x00})
	require.Error(t, err)
}

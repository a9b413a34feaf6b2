package transport

import (
	"errors"
	"fmt"
	"math"

	"github.com/scgolang/osc"

	"github.com/danmuck/osclink/internal/protocol/codec"
	"github.com/danmuck/osclink/internal/protocol/ndarray"
	"github.com/danmuck/osclink/internal/protocol/token"
)

var (
	ErrUnsupportedArgument = errors.New("transport: unsupported OSC argument")
	ErrArrayNotAlone       = errors.New("transport: an ndarray must be the only value in a message")
)

// Arguments converts native values to OSC arguments. Values OSC has no type
// for (nil, maps, slices, arrays and integers wider than 32 bits) travel as
// "%JSON:" text, which the receiving parser decodes back.
func Arguments(values []any) (osc.Arguments, error) {
	out := make(osc.Arguments, 0, len(values))
	for i, v := range values {
		arg, err := argument(v)
		if err != nil {
			return nil, fmt.Errorf("transport: argument %d: %w", i, err)
		}
		out = append(out, arg)
	}
	return out, nil
}

// messageArguments applies the ndarray convention: a lone array is sent as
// ('ndarray', dtype, *shape, blob).
func messageArguments(values []any) (osc.Arguments, error) {
	if len(values) > 0 {
		if arr, ok := values[0].(*ndarray.Array); ok {
			if len(values) > 1 {
				return nil, ErrArrayNotAlone
			}
			packed, err := ndarray.ToOSCArgs(arr)
			if err != nil {
				return nil, err
			}
			values = packed
		}
	}
	return Arguments(values)
}

func argument(v any) (osc.Argument, error) {
	switch x := v.(type) {
	case int32:
		return osc.Int(x), nil
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return osc.Int(int32(x)), nil
		}
	case int64:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return osc.Int(int32(x)), nil
		}
	case float32:
		return osc.Float(x), nil
	case float64:
		return osc.Float(float32(x)), nil
	case string:
		return osc.String(x), nil
	case []byte:
		return osc.Blob(x), nil
	case bool:
		return osc.Bool(x), nil
	}
	text, err := codec.EncodeJSON(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedArgument, v, err)
	}
	return osc.String(text), nil
}

// Tokens converts received OSC arguments into parser tokens.
func Tokens(args osc.Arguments) ([]token.Token, error) {
	out := make([]token.Token, 0, len(args))
	for i, arg := range args {
		switch x := arg.(type) {
		case osc.Int:
			out = append(out, token.Int(int64(x)))
		case osc.Float:
			out = append(out, token.Float(float64(x)))
		case osc.String:
			out = append(out, token.Text(string(x)))
		case osc.Blob:
			out = append(out, token.Blob([]byte(x)))
		case osc.Bool:
			out = append(out, token.Bool(bool(x)))
		default:
			return nil, fmt.Errorf("%w: %d has type %T", ErrUnsupportedArgument, i, arg)
		}
	}
	return out, nil
}

// tokenValues flattens tokens for recording.
func tokenValues(toks []token.Token) []any {
	out := make([]any, len(toks))
	for i, tok := range toks {
		out[i] = tok.Value()
	}
	return out
}

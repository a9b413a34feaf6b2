package token

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the wire representation carried by a Token.
type Kind uint8

// Kind IDs for decoded wire values.
const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindText
	KindBlob
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Token is one decoded value from an inbound message, prior to argument binding.
type Token struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
	Blob  []byte
	Bool  bool
	List  []Token
}

func Nil() Token { return Token{Kind: KindNil} }
func Int(v int64) Token { return Token{Kind: KindInt, Int: v} }
func Float(v float64) Token { return Token{Kind: KindFloat, Float: v} }
func Text(v string) Token { return Token{Kind: KindText, Text: v} }
func Bool(v bool) Token { return Token{Kind: KindBool, Bool: v} }
func List(items ...Token) Token { return Token{Kind: KindList, List: items} }

// Blob copies v so the token stays immutable once built.
func Blob(v []byte) Token {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Token{Kind: KindBlob, Blob: buf}
}

// IsText reports whether the token carries a text value.
func (t Token) IsText() bool {
	return t.Kind == KindText
}

// Value returns the native Go value of the token: nil, int64, float64,
// string, []byte, bool or []any for lists.
func (t Token) Value() any {
	switch t.Kind {
	case KindInt:
		return t.Int
	case KindFloat:
		return t.Float
	case KindText:
		return t.Text
	case KindBlob:
		return t.Blob
	case KindBool:
		return t.Bool
	case KindList:
		out := make([]any, len(t.List))
		for i, item := range t.List {
			out[i] = item.Value()
		}
		return out
	default:
		return nil
	}
}

// String renders the token for logs.
func (t Token) String() string {
	switch t.Kind {
	case KindNil:
		return "nil"
	case KindInt:
		return strconv.FormatInt(t.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(t.Float, 'g', -1, 64)
	case KindText:
		return strconv.Quote(t.Text)
	case KindBlob:
		return fmt.Sprintf("blob[%d]", len(t.Blob))
	case KindBool:
		return strconv.FormatBool(t.Bool)
	case KindList:
		parts := make([]string, len(t.List))
		for i, item := range t.List {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "?"
	}
}

// FromValue builds a token from a native Go value. It is the inverse of
// Value for the supported types and is mostly useful in tests and for
// transports that hand over untyped values.
func FromValue(v any) (Token, error) {
	switch x := v.(type) {
	case nil:
		return Nil(), nil
	case Token:
		return x, nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	case bool:
		return Bool(x), nil
	case []any:
		items := make([]Token, len(x))
		for i, item := range x {
			tok, err := FromValue(item)
			if err != nil {
				return Token{}, err
			}
			items[i] = tok
		}
		return List(items...), nil
	default:
		return Token{}, fmt.Errorf("token: unsupported value type %T", v)
	}
}

// Values converts a list of native values into tokens.
func Values(vs ...any) ([]Token, error) {
	out := make([]Token, 0, len(vs))
	for _, v := range vs {
		tok, err := FromValue(v)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// Format renders a token sequence for logs.
func Format(toks []Token) string {
	parts := make([]string, len(toks))
	for i, tok := range toks {
		parts[i] = tok.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

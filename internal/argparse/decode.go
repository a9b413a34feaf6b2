package argparse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danmuck/osclink/internal/protocol/codec"
	"github.com/danmuck/osclink/internal/protocol/ndarray"
	"github.com/danmuck/osclink/internal/protocol/token"
	"github.com/danmuck/osclink/internal/signature"
)

// isKey decides whether tok names a keyword argument. Fixed-arity groups
// never consult it, so a text token inside one is always data; at the start
// of a positional fixed group only declared names are keys.
func (p *parser) isKey(tok token.Token) bool {
	switch {
	case !p.sig.Keywords:
		return false
	case !tok.IsText():
		return false
	case p.sig.IsKeywordName(tok.Text):
		return true
	case p.sig.AcceptsExtraKeyword():
		return !p.atFixedSplat()
	case !p.sig.PositionalParsing:
		return true
	default:
		return false
	}
}

func (p *parser) atFixedSplat() bool {
	return p.mode == modePositional &&
		p.index < len(p.sig.Positional) &&
		p.sig.Positional[p.index].Type.IsFixedSplat()
}

// decode consumes the tokens for one argument of declared type typ. The
// caller guarantees at least one token remains unless typ is Splat(None).
func (p *parser) decode(typ signature.DeclaredType, param string) (any, error) {
	switch {
	case typ.IsFixedSplat():
		group := make([]any, 0, typ.N)
		for len(group) < typ.N {
			tok, ok := p.stream.Advance()
			if !ok {
				return nil, &ParseError{
					Kind:  ErrTruncatedSplat,
					Param: param,
					Index: p.stream.Offset(),
					Err:   fmt.Errorf("stream ended after %d of %d tokens", len(group), typ.N),
				}
			}
			group = append(group, tok.Value())
		}
		return group, nil
	case typ.IsUnboundedSplat():
		group := []any{}
		for {
			tok, ok := p.stream.Peek()
			if !ok || p.isKey(tok) {
				return group, nil
			}
			p.stream.Advance()
			group = append(group, tok.Value())
		}
	}

	at := p.stream.Offset()
	tok, _ := p.stream.Advance()
	switch typ.Kind {
	case signature.TypeObject:
		v, err := decodeObject(tok)
		if err != nil {
			return nil, p.failAt(ErrMalformedObject, param, at, tok, err)
		}
		return v, nil
	case signature.TypeNumericArray:
		v, err := decodeArray(tok)
		if err != nil {
			return nil, p.failAt(ErrMalformedNumericArray, param, at, tok, err)
		}
		return v, nil
	}
	if tok.IsText() && codec.HasJSONPrefix(tok.Text) {
		v, err := decodeLegacyJSON(tok.Text)
		if err != nil {
			return nil, p.failAt(ErrMalformedObject, param, at, tok, err)
		}
		return v, nil
	}
	return tok.Value(), nil
}

func decodeObject(tok token.Token) (any, error) {
	switch tok.Kind {
	case token.KindText:
		return decodeLegacyJSON(tok.Text)
	case token.KindBlob:
		return codec.UnmarshalObject(tok.Blob)
	default:
		return tok.Value(), nil
	}
}

// decodeLegacyJSON parses JSON text, promoting a {data, dtype, shape}
// document to an array.
func decodeLegacyJSON(text string) (any, error) {
	v, err := codec.DecodeJSON(text)
	if err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok && isArrayDoc(m) {
		return ndarray.FromMap(m)
	}
	return v, nil
}

func isArrayDoc(m map[string]any) bool {
	for _, k := range []string{"data", "dtype", "shape"} {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

// decodeArray reads text as a JSON {data, dtype, shape} object, falling back
// to the printed array form when the text is not a JSON object. Blobs are
// flat little-endian float32 buffers.
func decodeArray(tok token.Token) (any, error) {
	switch tok.Kind {
	case token.KindText:
		text := strings.TrimSpace(strings.TrimPrefix(tok.Text, codec.JSONPrefix))
		if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
			return ndarray.FromJSON([]byte(text))
		}
		return ndarray.ParseLiteral(text)
	case token.KindBlob:
		return ndarray.FromFloat32Blob(tok.Blob)
	default:
		return tok.Value(), nil
	}
}

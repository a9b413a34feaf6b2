package ndarray

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedLiteral reports text that is not a printed array.
var ErrMalformedLiteral = errors.New("ndarray: malformed array literal")

type litKind uint8

const (
	litEOF litKind = iota
	litNumber
	litIdent
	litString
	litLBrack
	litRBrack
	litLParen
	litRParen
	litComma
	litEquals
)

type litToken struct {
	kind litKind
	text string
	pos  int
}

// ParseLiteral reads the printed form of an array, either
//
//	array([[1., 2.], [3., 4.]], dtype=float32)
//
// optionally prefixed by np. or numpy., or a bare nested list such as
// [1, 2, 3]. Only numbers, True/False, nan and inf are accepted as elements.
// Without an explicit dtype the element type is inferred: float64 when any
// element is a float, then int64, then bool.
func ParseLiteral(s string) (*Array, error) {
	toks, err := lexLiteral(s)
	if err != nil {
		return nil, err
	}
	p := &literalParser{toks: toks}
	return p.parse()
}

type literalParser struct {
	toks  []litToken
	pos   int
	depth int
	count int

	sawFloat bool
	sawInt   bool
	sawBool  bool
}

func (p *literalParser) peek() litToken {
	return p.toks[p.pos]
}

func (p *literalParser) next() litToken {
	t := p.toks[p.pos]
	if t.kind != litEOF {
		p.pos++
	}
	return t
}

func (p *literalParser) expect(kind litKind, what string) (litToken, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s", what)
	}
	return t, nil
}

func (p *literalParser) errorf(t litToken, format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedLiteral, fmt.Sprintf(format, args...), t.pos)
}

func (p *literalParser) parse() (*Array, error) {
	var (
		data  any
		dtype string
		err   error
	)
	if t := p.peek(); t.kind == litIdent {
		if !isArrayCtor(t.text) {
			return nil, p.errorf(t, "unexpected name %q", t.text)
		}
		p.next()
		if _, err := p.expect(litLParen, "'('"); err != nil {
			return nil, err
		}
		if data, err = p.value(); err != nil {
			return nil, err
		}
		if p.peek().kind == litComma {
			p.next()
			if dtype, err = p.dtypeArg(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(litRParen, "')'"); err != nil {
			return nil, err
		}
	} else if data, err = p.value(); err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != litEOF {
		return nil, p.errorf(t, "trailing input")
	}

	shape, flat, err := flatten(data)
	if err != nil {
		return nil, err
	}
	if dtype == "" {
		dtype = p.inferred()
	}
	return New(dtype, shape, flat)
}

func (p *literalParser) dtypeArg() (string, error) {
	kw, err := p.expect(litIdent, "dtype keyword")
	if err != nil {
		return "", err
	}
	if kw.text != "dtype" {
		return "", p.errorf(kw, "unexpected keyword %q", kw.text)
	}
	if _, err := p.expect(litEquals, "'='"); err != nil {
		return "", err
	}
	t := p.next()
	if t.kind != litIdent && t.kind != litString {
		return "", p.errorf(t, "expected dtype name")
	}
	name := strings.TrimPrefix(strings.TrimPrefix(t.text, "numpy."), "np.")
	if !KnownDType(name) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDType, name)
	}
	return name, nil
}

func (p *literalParser) value() (any, error) {
	t := p.next()
	switch t.kind {
	case litLBrack:
		p.depth++
		if p.depth > MaxDepth {
			return nil, ErrTooDeep
		}
		defer func() { p.depth-- }()
		items := []any{}
		if p.peek().kind == litRBrack {
			p.next()
			return items, nil
		}
		for {
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			items = append(items, v)
			sep := p.next()
			switch sep.kind {
			case litRBrack:
				return items, nil
			case litComma:
				if p.peek().kind == litRBrack {
					p.next()
					return items, nil
				}
			default:
				return nil, p.errorf(sep, "expected ',' or ']'")
			}
		}
	case litNumber:
		return p.element(t)
	case litIdent:
		switch t.text {
		case "True", "False":
			if err := p.countElement(); err != nil {
				return nil, err
			}
			p.sawBool = true
			return t.text == "True", nil
		case "nan", "inf":
			return p.element(t)
		}
		return nil, p.errorf(t, "unexpected name %q", t.text)
	}
	return nil, p.errorf(t, "expected value")
}

func (p *literalParser) element(t litToken) (any, error) {
	if err := p.countElement(); err != nil {
		return nil, err
	}
	f, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return nil, p.errorf(t, "bad number %q", t.text)
	}
	if strings.ContainsAny(t.text, ".eEnN") {
		p.sawFloat = true
	} else {
		p.sawInt = true
	}
	return f, nil
}

func (p *literalParser) countElement() error {
	p.count++
	if p.count > MaxElements {
		return ErrTooLarge
	}
	return nil
}

func (p *literalParser) inferred() string {
	switch {
	case p.sawFloat:
		return Float64
	case p.sawInt:
		return Int64
	case p.sawBool:
		return Bool
	default:
		return Float64
	}
}

func isArrayCtor(name string) bool {
	return name == "array" || name == "np.array" || name == "numpy.array"
}

func lexLiteral(s string) ([]litToken, error) {
	var toks []litToken
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '[':
			toks = append(toks, litToken{kind: litLBrack, text: "[", pos: i})
			i++
		case c == ']':
			toks = append(toks, litToken{kind: litRBrack, text: "]", pos: i})
			i++
		case c == '(':
			toks = append(toks, litToken{kind: litLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, litToken{kind: litRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, litToken{kind: litComma, text: ",", pos: i})
			i++
		case c == '=':
			toks = append(toks, litToken{kind: litEquals, text: "=", pos: i})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated string at offset %d", ErrMalformedLiteral, i)
			}
			toks = append(toks, litToken{kind: litString, text: s[i+1 : i+1+end], pos: i})
			i += end + 2
		case c == '+' || c == '-' || c == '.' || isDigit(c):
			start := i
			if c == '+' || c == '-' {
				i++
			}
			if i < len(s) && isIdentStart(s[i]) {
				j := scanIdent(s, i)
				word := s[i:j]
				if word != "inf" && word != "nan" {
					return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformedLiteral, s[start:j], start)
				}
				toks = append(toks, litToken{kind: litNumber, text: s[start:j], pos: start})
				i = j
				continue
			}
			i = scanNumber(s, i)
			if i == start || (i == start+1 && !isDigit(s[start])) {
				return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformedLiteral, s[start:min(start+3, len(s))], start)
			}
			toks = append(toks, litToken{kind: litNumber, text: s[start:i], pos: start})
		case isIdentStart(c):
			j := scanIdent(s, i)
			toks = append(toks, litToken{kind: litIdent, text: s[i:j], pos: i})
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformedLiteral, c, i)
		}
	}
	return append(toks, litToken{kind: litEOF, pos: len(s)}), nil
}

func scanNumber(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func scanIdent(s string, i int) int {
	for i < len(s) && (isIdentStart(s[i]) || isDigit(s[i]) || s[i] == '.') {
		i++
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

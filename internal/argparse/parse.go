// Package argparse binds the flat token list of one inbound message to a
// handler's parameters. Keys are recognised from the handler's parameter
// names alone; the wire format carries no tagging.
package argparse

import (
	"github.com/danmuck/osclink/internal/protocol/token"
	"github.com/danmuck/osclink/internal/signature"
)

// Result holds the positional and keyword arguments for one invocation.
type Result struct {
	Positional []any
	Keyword    map[string]any
}

type mode uint8

const (
	modePositional mode = iota
	modeKeywordOnly
)

type parser struct {
	sig    *signature.Signature
	stream *token.Stream
	mode   mode
	index  int
	res    Result
}

// Parse assembles the arguments for sig from toks. It never mutates sig and
// holds no state between calls, so it is safe for concurrent use.
func Parse(toks []token.Token, sig *signature.Signature) (Result, error) {
	p := &parser{
		sig:    sig,
		stream: token.NewStream(toks),
		mode:   modeKeywordOnly,
		res: Result{
			Positional: []any{},
			Keyword:    map[string]any{},
		},
	}
	if sig.PositionalParsing && (len(sig.Positional) > 0 || sig.AcceptsExtraPositional()) {
		p.mode = modePositional
	}
	if err := p.run(); err != nil {
		return Result{}, err
	}
	return p.res, nil
}

func (p *parser) run() error {
	for {
		look, ok := p.stream.Peek()
		if !ok {
			return nil
		}
		switch {
		case p.isKey(look):
			if err := p.keyword(); err != nil {
				return err
			}
		case p.mode == modePositional:
			if err := p.positional(); err != nil {
				return err
			}
		case len(p.res.Keyword) > 0:
			return p.fail(ErrPositionalAfterKeyword, "", look, nil)
		default:
			return p.fail(ErrTooManyPositional, "", look, nil)
		}
	}
}

func (p *parser) keyword() error {
	key, _ := p.stream.Advance()
	if _, ok := p.stream.Peek(); !ok {
		return p.failAt(ErrMissingValueForKey, key.Text, p.stream.Offset()-1, key, nil)
	}
	typ := signature.Any()
	if p.sig.IsKeywordName(key.Text) {
		typ = p.sig.Named[key.Text].Type
	}
	p.mode = modeKeywordOnly
	v, err := p.decode(typ, key.Text)
	if err != nil {
		return err
	}
	p.res.Keyword[key.Text] = v
	return nil
}

func (p *parser) positional() error {
	typ := signature.Any()
	name := ""
	switch {
	case p.index < len(p.sig.Positional):
		param := p.sig.Positional[p.index]
		typ, name = param.Type, param.Name
		last := p.index == len(p.sig.Positional)-1
		if typ.IsUnboundedSplat() && !last && !p.sig.Keywords {
			look, _ := p.stream.Peek()
			return p.fail(ErrAmbiguousSplat, name, look, nil)
		}
	case p.sig.AcceptsExtraPositional():
		name = p.sig.VarPositional.Name
	default:
		look, _ := p.stream.Peek()
		return p.fail(ErrTooManyPositional, "", look, nil)
	}

	v, err := p.decode(typ, name)
	if err != nil {
		return err
	}
	p.res.Positional = append(p.res.Positional, v)
	p.index++
	if p.index >= len(p.sig.Positional) && !p.sig.AcceptsExtraPositional() {
		p.mode = modeKeywordOnly
	}
	return nil
}

func (p *parser) fail(kind error, param string, tok token.Token, cause error) error {
	return p.failAt(kind, param, p.stream.Offset(), tok, cause)
}

func (p *parser) failAt(kind error, param string, index int, tok token.Token, cause error) error {
	return &ParseError{
		Kind:  kind,
		Param: param,
		Index: index,
		Token: tok.String(),
		Err:   cause,
	}
}

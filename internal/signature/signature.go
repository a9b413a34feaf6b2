// Package signature describes handler parameters and builds the per-handler
// metadata the argument parser consults. A Signature is built once when a
// handler is registered and is read-only afterwards.
package signature

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrConflictingVariadic = errors.New("signature: conflicting variadic declaration")
	ErrInvalidSignature    = errors.New("signature: invalid parameter list")
)

// TypeKind is the closed set of declared parameter types.
type TypeKind uint8

const (
	TypeAny TypeKind = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
	TypeBytes
	TypeObject
	TypeSplat
	TypeNumericArray
)

// DeclaredType is a parameter's declared type. N is the fixed arity of a
// Splat; zero means unbounded.
type DeclaredType struct {
	Kind TypeKind
	N    int
}

func Any() DeclaredType { return DeclaredType{Kind: TypeAny} }
func Int() DeclaredType { return DeclaredType{Kind: TypeInt} }
func Float() DeclaredType { return DeclaredType{Kind: TypeFloat} }
func String() DeclaredType { return DeclaredType{Kind: TypeString} }
func Bool() DeclaredType { return DeclaredType{Kind: TypeBool} }
func Bytes() DeclaredType { return DeclaredType{Kind: TypeBytes} }
func Object() DeclaredType { return DeclaredType{Kind: TypeObject} }
func NumericArray() DeclaredType { return DeclaredType{Kind: TypeNumericArray} }
func SplatAll() DeclaredType { return DeclaredType{Kind: TypeSplat} }

// Splat is a fixed-arity group of n consecutive tokens. Splat(0) is
// equivalent to SplatAll.
func Splat(n int) DeclaredType {
	if n < 0 {
		n = 0
	}
	return DeclaredType{Kind: TypeSplat, N: n}
}

// IsScalar reports whether values of t pass through the parser untouched.
func (t DeclaredType) IsScalar() bool {
	switch t.Kind {
	case TypeAny, TypeInt, TypeFloat, TypeString, TypeBool, TypeBytes:
		return true
	}
	return false
}

// IsFixedSplat reports whether t is a Splat with a fixed arity.
func (t DeclaredType) IsFixedSplat() bool {
	return t.Kind == TypeSplat && t.N > 0
}

// IsUnboundedSplat reports whether t is Splat(None).
func (t DeclaredType) IsUnboundedSplat() bool {
	return t.Kind == TypeSplat && t.N == 0
}

func (t DeclaredType) String() string {
	switch t.Kind {
	case TypeAny:
		return "any"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeBytes:
		return "bytes"
	case TypeObject:
		return "object"
	case TypeNumericArray:
		return "ndarray"
	case TypeSplat:
		if t.N == 0 {
			return "splat(none)"
		}
		return "splat(" + strconv.Itoa(t.N) + ")"
	default:
		return "unknown"
	}
}

// ParamKind separates ordinary parameters from the catch-all ones.
type ParamKind uint8

const (
	Ordinary ParamKind = iota
	VarPositional
	VarKeyword
)

func (k ParamKind) String() string {
	switch k {
	case VarPositional:
		return "*args"
	case VarKeyword:
		return "**kwargs"
	default:
		return "ordinary"
	}
}

// Param is one declared handler parameter, excluding the route.
type Param struct {
	Name       string
	Type       DeclaredType
	Kind       ParamKind
	Default    any
	HasDefault bool
	// Position is the index among leading positional parameters, or -1 for
	// keyword-only and catch-all parameters. Set by Build.
	Position int
	// Schema is an optional JSON schema the validation layer applies to the
	// bound value.
	Schema map[string]any
}

// Options overrides the defaults Build derives from the parameter list.
// Nil fields keep the derived value.
type Options struct {
	Keywords   *bool
	Positional *bool
}

// Signature is the registration-time view of a handler's parameters.
type Signature struct {
	// Positional lists the leading positional parameters in order.
	Positional []Param
	// Named maps every named parameter, including the catch-alls.
	Named map[string]Param
	// Params keeps the declaration order.
	Params []Param

	VarPositional *Param
	VarKeyword    *Param

	Keywords          bool
	PositionalParsing bool
}

// AcceptsExtraPositional reports whether the handler has a *args parameter.
func (s *Signature) AcceptsExtraPositional() bool {
	return s.VarPositional != nil
}

// AcceptsExtraKeyword reports whether the handler has a **kwargs parameter.
func (s *Signature) AcceptsExtraKeyword() bool {
	return s.VarKeyword != nil
}

// Lookup returns the declared parameter called name.
func (s *Signature) Lookup(name string) (Param, bool) {
	p, ok := s.Named[name]
	return p, ok
}

// IsKeywordName reports whether name can be passed as a keyword: it names an
// ordinary parameter. Catch-all names are not keywords.
func (s *Signature) IsKeywordName(name string) bool {
	p, ok := s.Named[name]
	return ok && p.Kind == Ordinary
}

// Build validates params and derives the parser flags. Ordinary parameters
// declared after the *args parameter are keyword-only. Positional parsing is
// disabled by default when every parameter has a default or is **kwargs.
func Build(params []Param, opts Options) (*Signature, error) {
	sig := &Signature{
		Named:    make(map[string]Param, len(params)),
		Params:   make([]Param, 0, len(params)),
		Keywords: true,
	}

	allDefaulted := true
	for i, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: parameter %d has no name", ErrInvalidSignature, i)
		}
		if _, dup := sig.Named[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidSignature, p.Name)
		}
		if sig.VarKeyword != nil {
			return nil, fmt.Errorf("%w: %q declared after **%s", ErrInvalidSignature, p.Name, sig.VarKeyword.Name)
		}
		if p.Type.Kind > TypeNumericArray {
			return nil, fmt.Errorf("%w: %q has unknown type", ErrInvalidSignature, p.Name)
		}

		p.Position = -1
		switch p.Kind {
		case VarPositional:
			if sig.VarPositional != nil {
				return nil, fmt.Errorf("%w: more than one *args parameter", ErrInvalidSignature)
			}
			if p.HasDefault {
				return nil, fmt.Errorf("%w: *%s cannot have a default", ErrInvalidSignature, p.Name)
			}
			allDefaulted = false
		case VarKeyword:
			if p.HasDefault {
				return nil, fmt.Errorf("%w: **%s cannot have a default", ErrInvalidSignature, p.Name)
			}
		case Ordinary:
			if sig.VarPositional == nil {
				p.Position = len(sig.Positional)
				sig.Positional = append(sig.Positional, p)
			}
			if !p.HasDefault {
				allDefaulted = false
			}
		default:
			return nil, fmt.Errorf("%w: %q has unknown kind", ErrInvalidSignature, p.Name)
		}

		sig.Params = append(sig.Params, p)
		sig.Named[p.Name] = p
		switch p.Kind {
		case VarPositional:
			vp := p
			sig.VarPositional = &vp
		case VarKeyword:
			vk := p
			sig.VarKeyword = &vk
		}
	}

	sig.PositionalParsing = !allDefaulted
	if opts.Keywords != nil {
		if !*opts.Keywords && sig.VarKeyword != nil {
			return nil, fmt.Errorf("%w: keywords disabled but **%s declared", ErrConflictingVariadic, sig.VarKeyword.Name)
		}
		sig.Keywords = *opts.Keywords
	}
	if opts.Positional != nil {
		if !*opts.Positional && sig.VarPositional != nil {
			return nil, fmt.Errorf("%w: positional parsing disabled but *%s declared", ErrConflictingVariadic, sig.VarPositional.Name)
		}
		sig.PositionalParsing = *opts.Positional
	}
	return sig, nil
}

// BoolOpt returns a pointer to v, for Options fields.
func BoolOpt(v bool) *bool {
	return &v
}

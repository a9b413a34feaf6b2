// Package validate binds parsed arguments to a handler's parameters, coerces
// scalar values to their declared types and applies per-parameter JSON
// schemas. Every failure is collected before returning.
package validate

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/danmuck/osclink/internal/argparse"
	"github.com/danmuck/osclink/internal/signature"
)

var (
	ErrInvalid   = errors.New("validate: invalid arguments")
	ErrBadSchema = errors.New("validate: bad parameter schema")
)

// FieldError describes one rejected value.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Input   any    `json:"input,omitempty"`
}

func (f FieldError) String() string {
	return f.Path + ": " + f.Message
}

// Error lists every field that failed. errors.Is(err, ErrInvalid) holds.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, "; "))
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Args are the bound, coerced arguments for one handler invocation.
type Args struct {
	// Named holds ordinary parameters, including filled defaults.
	Named map[string]any
	// Extra holds values bound to the *args parameter.
	Extra []any
	// ExtraKeywords holds values bound to the **kwargs parameter.
	ExtraKeywords map[string]any
}

// Validator checks arguments for one signature. Schemas are compiled once.
type Validator struct {
	sig     *signature.Signature
	schemas map[string]*gojsonschema.Schema
}

// New compiles the parameter schemas of sig.
func New(sig *signature.Signature) (*Validator, error) {
	v := &Validator{sig: sig, schemas: map[string]*gojsonschema.Schema{}}
	for _, p := range sig.Params {
		if p.Schema == nil {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(p.Schema))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadSchema, p.Name, err)
		}
		v.schemas[p.Name] = schema
	}
	return v, nil
}

// Coerce is New followed by Validator.Coerce.
func Coerce(sig *signature.Signature, res argparse.Result) (Args, error) {
	v, err := New(sig)
	if err != nil {
		return Args{}, err
	}
	return v.Coerce(res)
}

// Coerce binds res to the signature. Supplied values are coerced to their
// declared types; defaults are used as declared.
func (v *Validator) Coerce(res argparse.Result) (Args, error) {
	sig := v.sig
	args := Args{
		Named:         make(map[string]any, len(sig.Params)),
		Extra:         []any{},
		ExtraKeywords: map[string]any{},
	}
	var fields []FieldError

	bind := func(p signature.Param, path string, value any) (any, bool) {
		out, err := coerce(p.Type, value)
		if err != nil {
			fields = append(fields, FieldError{Path: path, Message: err.Error(), Input: value})
			return nil, false
		}
		if schema, ok := v.schemas[p.Name]; ok {
			fields = append(fields, checkSchema(schema, path, out)...)
		}
		return out, true
	}

	for i, value := range res.Positional {
		if i < len(sig.Positional) {
			p := sig.Positional[i]
			if out, ok := bind(p, p.Name, value); ok {
				args.Named[p.Name] = out
			}
			continue
		}
		if sig.VarPositional == nil {
			fields = append(fields, FieldError{
				Path:    fmt.Sprintf("[%d]", i),
				Message: fmt.Sprintf("takes %d positional arguments but %d were given", len(sig.Positional), len(res.Positional)),
				Input:   value,
			})
			continue
		}
		path := fmt.Sprintf("%s[%d]", sig.VarPositional.Name, len(args.Extra))
		if out, ok := bind(*sig.VarPositional, path, value); ok {
			args.Extra = append(args.Extra, out)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(res.Keyword)) {
		value := res.Keyword[key]
		switch {
		case sig.IsKeywordName(key):
			if _, dup := args.Named[key]; dup {
				fields = append(fields, FieldError{Path: key, Message: "got multiple values for argument", Input: value})
				continue
			}
			if out, ok := bind(sig.Named[key], key, value); ok {
				args.Named[key] = out
			}
		case sig.VarKeyword != nil:
			path := sig.VarKeyword.Name + "." + key
			if out, ok := bind(*sig.VarKeyword, path, value); ok {
				args.ExtraKeywords[key] = out
			}
		default:
			fields = append(fields, FieldError{Path: key, Message: "unexpected keyword argument", Input: value})
		}
	}

	for _, p := range sig.Params {
		if p.Kind != signature.Ordinary {
			continue
		}
		if _, ok := args.Named[p.Name]; ok || hasField(fields, p.Name) {
			continue
		}
		if !p.HasDefault {
			fields = append(fields, FieldError{Path: p.Name, Message: "missing required argument"})
			continue
		}
		args.Named[p.Name] = p.Default
	}

	if len(fields) > 0 {
		return Args{}, &Error{Fields: fields}
	}
	return args, nil
}

func hasField(fields []FieldError, path string) bool {
	for _, f := range fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

func checkSchema(schema *gojsonschema.Schema, path string, value any) []FieldError {
	result, err := schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return []FieldError{{Path: path, Message: err.Error(), Input: value}}
	}
	if result.Valid() {
		return nil
	}
	out := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		p := path
		if field := desc.Field(); field != "" && field != "(root)" {
			p += "." + field
		}
		out = append(out, FieldError{Path: p, Message: desc.Description(), Input: desc.Value()})
	}
	return out
}

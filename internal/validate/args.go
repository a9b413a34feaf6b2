package validate

import (
	"github.com/danmuck/osclink/internal/protocol/ndarray"
)

// Get returns the named argument, or nil when it is not bound.
func (a Args) Get(name string) any {
	return a.Named[name]
}

func (a Args) Int(name string) int64 {
	v, _ := a.Named[name].(int64)
	return v
}

func (a Args) Float(name string) float64 {
	switch v := a.Named[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func (a Args) String(name string) string {
	v, _ := a.Named[name].(string)
	return v
}

func (a Args) Bool(name string) bool {
	v, _ := a.Named[name].(bool)
	return v
}

func (a Args) List(name string) []any {
	v, _ := a.Named[name].([]any)
	return v
}

func (a Args) Array(name string) *ndarray.Array {
	v, _ := a.Named[name].(*ndarray.Array)
	return v
}

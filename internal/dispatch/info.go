package dispatch

import "github.com/danmuck/osclink/internal/signature"

// ParamInfo describes one handler parameter for the admin surface.
type ParamInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// RouteInfo describes one registered binding.
type RouteInfo struct {
	Route      string      `json:"route"`
	Pattern    bool        `json:"pattern"`
	Keywords   bool        `json:"keywords"`
	Positional bool        `json:"positional"`
	Locked     bool        `json:"locked"`
	Params     []ParamInfo `json:"params"`
}

// Routes lists every binding in registration order.
func (d *Dispatcher) Routes() []RouteInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RouteInfo, 0, len(d.order))
	for _, b := range d.order {
		info := RouteInfo{
			Route:      b.Route,
			Pattern:    b.pattern != nil,
			Keywords:   b.Signature.Keywords,
			Positional: b.Signature.PositionalParsing,
			Locked:     b.locked,
			Params:     make([]ParamInfo, 0, len(b.Signature.Params)),
		}
		for _, p := range b.Signature.Params {
			info.Params = append(info.Params, ParamInfo{
				Name:     p.Name,
				Type:     p.Type.String(),
				Kind:     p.Kind.String(),
				Required: p.Kind == signature.Ordinary && !p.HasDefault,
				Default:  p.Default,
			})
		}
		out = append(out, info)
	}
	return out
}

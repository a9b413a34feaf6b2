package main

import (
	"context"
	"fmt"
	"maps"
	"math"
	"strings"
	"sync"

	"github.com/danmuck/osclink/internal/dispatch"
	"github.com/danmuck/osclink/internal/recorder"
	"github.com/danmuck/osclink/internal/signature"
)

// handlers are the routes osclinkd serves out of the box.
type handlers struct {
	rec *recorder.Recorder

	mu       sync.Mutex
	settings map[string]any
	meters   map[string]float64
}

func newHandlers(rec *recorder.Recorder) *handlers {
	return &handlers{
		rec:      rec,
		settings: map[string]any{"rate": int64(44100), "gain": 1.0, "name": ""},
		meters:   map[string]float64{},
	}
}

var configSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"channels": map[string]any{"type": "integer", "minimum": 1, "maximum": 64},
		"mode":     map[string]any{"type": "string", "enum": []any{"mono", "stereo", "surround"}},
	},
	"additionalProperties": false,
}

func (h *handlers) register(d *dispatch.Dispatcher) error {
	routes := []struct {
		route  string
		params []signature.Param
		fn     dispatch.HandlerFunc
		opts   []dispatch.HandleOption
	}{
		{
			route:  "/echo",
			params: []signature.Param{{Name: "args", Kind: signature.VarPositional}},
			fn:     h.echo,
			opts:   []dispatch.HandleOption{dispatch.WithoutKeywords(), dispatch.WithoutLock()},
		},
		{
			route: "/sum",
			params: []signature.Param{
				{Name: "values", Kind: signature.VarPositional, Type: signature.Float()},
				{Name: "scale", Type: signature.Float(), HasDefault: true, Default: 1.0},
			},
			fn: h.sum,
		},
		{
			route:  "/ndarray/stats",
			params: []signature.Param{{Name: "a", Type: signature.NumericArray()}},
			fn:     h.stats,
		},
		{
			route: "/config",
			params: []signature.Param{
				{Name: "rate", Type: signature.Int(), HasDefault: true, Default: int64(44100)},
				{Name: "gain", Type: signature.Float(), HasDefault: true, Default: 1.0},
				{Name: "name", Type: signature.String(), HasDefault: true, Default: ""},
				{Name: "extra", Type: signature.Object(), HasDefault: true, Schema: configSchema},
			},
			fn: h.config,
		},
		{
			route:  "/meter/*",
			params: []signature.Param{{Name: "level", Type: signature.Float()}},
			fn:     h.meter,
			opts:   []dispatch.HandleOption{dispatch.WithoutLock()},
		},
		{
			route: "/meters",
			fn:    h.listMeters,
		},
		{
			route:  "/record/start",
			params: []signature.Param{{Name: "path", Type: signature.String(), HasDefault: true, Default: ""}},
			fn:     h.recordStart,
		},
		{
			route: "/record/{pause,resume,stop}",
			fn:    h.recordControl,
		},
	}
	for _, r := range routes {
		if err := d.Handle(r.route, r.params, r.fn, r.opts...); err != nil {
			return err
		}
	}
	return nil
}

func (h *handlers) echo(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
	return dispatch.NewReply("/echo", req.Args.Extra...), nil
}

func (h *handlers) sum(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
	total := 0.0
	for _, v := range req.Args.Extra {
		total += v.(float64)
	}
	return dispatch.NewReply("/sum", total*req.Args.Float("scale")), nil
}

func (h *handlers) stats(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
	a := req.Args.Array("a")
	if a == nil || len(a.Data) == 0 {
		return nil, fmt.Errorf("stats: empty array")
	}
	lo, hi, total := math.Inf(1), math.Inf(-1), 0.0
	for _, v := range a.Data {
		lo = min(lo, v)
		hi = max(hi, v)
		total += v
	}
	return dispatch.NewReply("/ndarray/stats", lo, hi, total/float64(len(a.Data)), len(a.Data)), nil
}

func (h *handlers) config(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings["rate"] = req.Args.Int("rate")
	h.settings["gain"] = req.Args.Float("gain")
	h.settings["name"] = req.Args.String("name")
	if extra, ok := req.Args.Get("extra").(map[string]any); ok {
		maps.Copy(h.settings, extra)
	}
	return dispatch.NewReply("/config/ack", maps.Clone(h.settings)), nil
}

func (h *handlers) meter(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.meters[strings.TrimPrefix(req.Address, "/meter/")] = req.Args.Float("level")
	return nil, nil
}

func (h *handlers) listMeters(_ context.Context, _ *dispatch.Request) (*dispatch.Reply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]any, len(h.meters))
	for k, v := range h.meters {
		out[k] = v
	}
	return dispatch.NewReply("/meters", out), nil
}

func (h *handlers) recordStart(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
	if err := h.rec.Start(req.Args.String("path")); err != nil {
		return nil, err
	}
	return dispatch.NewReply("/record/status", true, h.rec.Path()), nil
}

func (h *handlers) recordControl(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
	switch req.Address {
	case "/record/pause":
		h.rec.Pause()
	case "/record/resume":
		h.rec.Resume()
	case "/record/stop":
		if err := h.rec.Stop(); err != nil {
			return nil, err
		}
	}
	return dispatch.NewReply("/record/status", h.rec.Recording(), h.rec.Path()), nil
}

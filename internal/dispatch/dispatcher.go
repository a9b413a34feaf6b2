// Package dispatch routes inbound messages to registered handlers. Each
// delivery parses the message tokens against the handler's signature,
// validates the result, runs the handler and forwards any reply.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/osclink/internal/argparse"
	"github.com/danmuck/osclink/internal/observability"
	"github.com/danmuck/osclink/internal/protocol/ndarray"
	"github.com/danmuck/osclink/internal/protocol/token"
	"github.com/danmuck/osclink/internal/signature"
	"github.com/danmuck/osclink/internal/validate"
)

var (
	ErrBadRoute     = errors.New("dispatch: invalid route")
	ErrNilHandler   = errors.New("dispatch: nil handler")
	ErrNoRoute      = errors.New("dispatch: no handler for address")
	ErrNoReplier    = errors.New("dispatch: no replier configured")
	ErrHandlerPanic = errors.New("dispatch: handler panicked")
)

// Binding is one registered handler.
type Binding struct {
	Route     string
	Signature *signature.Signature

	fn         HandlerFunc
	validator  *validate.Validator
	pattern    *regexp.Regexp
	locked     bool
	returnHost string
	returnPort int
}

// Dispatcher owns the handler registry. Registration and delivery may run
// concurrently.
type Dispatcher struct {
	mu       sync.RWMutex
	exact    map[string][]*Binding
	patterns []*Binding
	order    []*Binding

	logger     zerolog.Logger
	serializer Serializer
	replier    Replier
}

type Option func(*Dispatcher)

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithSerializer replaces the default MutexSerializer.
func WithSerializer(s Serializer) Option {
	return func(d *Dispatcher) { d.serializer = s }
}

func WithReplier(r Replier) Option {
	return func(d *Dispatcher) { d.replier = r }
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exact:      map[string][]*Binding{},
		logger:     log.Logger.With().Str("component", "dispatch").Logger(),
		serializer: NewMutexSerializer(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetReplier installs r after construction, for transports that need the
// dispatcher before they exist.
func (d *Dispatcher) SetReplier(r Replier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replier = r
}

type handleConfig struct {
	opts       signature.Options
	unlocked   bool
	returnHost string
	returnPort int
}

type HandleOption func(*handleConfig)

// WithoutKeywords disables keyword parsing; every token is positional.
func WithoutKeywords() HandleOption {
	return func(c *handleConfig) { c.opts.Keywords = signature.BoolOpt(false) }
}

// WithPositional overrides whether leading tokens bind positionally.
func WithPositional(on bool) HandleOption {
	return func(c *handleConfig) { c.opts.Positional = signature.BoolOpt(on) }
}

// WithoutLock runs the handler outside the dispatcher's serializer.
func WithoutLock() HandleOption {
	return func(c *handleConfig) { c.unlocked = true }
}

// ReturnTo overrides where replies go. Empty host or zero port keep the
// sender's.
func ReturnTo(host string, port int) HandleOption {
	return func(c *handleConfig) {
		c.returnHost = host
		c.returnPort = port
	}
}

// Handle registers fn for route. Routes may be OSC address patterns: '*'
// and '?' never match '/', and '**' is an extension that spans segments.
func (d *Dispatcher) Handle(route string, params []signature.Param, fn HandlerFunc, opts ...HandleOption) error {
	if fn == nil {
		return ErrNilHandler
	}
	if !strings.HasPrefix(route, "/") {
		return fmt.Errorf("%w: %q must start with '/'", ErrBadRoute, route)
	}
	var cfg handleConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	sig, err := signature.Build(params, cfg.opts)
	if err != nil {
		return fmt.Errorf("dispatch: register %s: %w", route, err)
	}
	v, err := validate.New(sig)
	if err != nil {
		return fmt.Errorf("dispatch: register %s: %w", route, err)
	}
	b := &Binding{
		Route:      route,
		Signature:  sig,
		fn:         fn,
		validator:  v,
		locked:     !cfg.unlocked,
		returnHost: cfg.returnHost,
		returnPort: cfg.returnPort,
	}
	if isPattern(route) {
		if b.pattern, err = compileRoute(route); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if b.pattern != nil {
		d.patterns = append(d.patterns, b)
	} else {
		d.exact[route] = append(d.exact[route], b)
	}
	d.order = append(d.order, b)
	d.logger.Debug().Str("route", route).Int("params", len(sig.Params)).Msg("handler registered")
	return nil
}

// Match returns the bindings for address: exact routes first, then
// patterns, each in registration order.
func (d *Dispatcher) Match(address string) []*Binding {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := append([]*Binding(nil), d.exact[address]...)
	for _, b := range d.patterns {
		if b.pattern.MatchString(address) {
			out = append(out, b)
		}
	}
	return out
}

// Deliver runs every handler matching msg.Address. Failures of one handler
// do not stop the others; all of them are joined in the result.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) error {
	matches := d.Match(msg.Address)
	if len(matches) == 0 {
		observability.RecordDispatch("unmatched", observability.OutcomeNoRoute)
		d.logger.Debug().
			Str("address", msg.Address).
			Str("sender", senderString(msg)).
			Msg("no handler for address")
		return fmt.Errorf("%w: %s", ErrNoRoute, msg.Address)
	}
	var errs []error
	for _, b := range matches {
		if err := d.deliver(ctx, b, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, b *Binding, msg Message) error {
	start := time.Now()
	res, err := parse(b.Signature, msg.Tokens)
	observability.RecordParse(b.Route, time.Since(start))
	if err != nil {
		d.drop(b, msg, observability.OutcomeParseError, err)
		return err
	}
	args, err := b.validator.Coerce(res)
	if err != nil {
		d.drop(b, msg, observability.OutcomeInvalid, err)
		return err
	}

	req := &Request{
		Route:   b.Route,
		Address: msg.Address,
		Sender:  msg.Sender,
		Args:    args,
		Tokens:  msg.Tokens,
	}
	var reply *Reply
	run := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			}
		}()
		reply, err = b.fn(ctx, req)
		return err
	}

	start = time.Now()
	if b.locked {
		err = d.serializer.Do(ctx, run)
	} else {
		err = run()
	}
	observability.RecordHandler(b.Route, time.Since(start))
	if err != nil {
		observability.RecordDispatch(b.Route, observability.OutcomeHandlerError)
		d.logger.Error().
			Err(err).
			Str("route", b.Route).
			Str("address", msg.Address).
			Str("sender", senderString(msg)).
			Msg("handler failed")
		return err
	}
	observability.RecordDispatch(b.Route, observability.OutcomeDelivered)
	if reply == nil {
		return nil
	}
	return d.reply(ctx, b, msg, reply)
}

func (d *Dispatcher) reply(ctx context.Context, b *Binding, msg Message, reply *Reply) error {
	d.mu.RLock()
	replier := d.replier
	d.mu.RUnlock()
	if replier == nil {
		observability.RecordReply(b.Route, false)
		d.logger.Warn().Str("route", b.Route).Msg("reply dropped, no replier")
		return ErrNoReplier
	}
	route := reply.Route
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	dst := Destination{Sender: msg.Sender, Host: b.returnHost, Port: b.returnPort}
	err := replier.Reply(ctx, dst, route, reply.Values...)
	observability.RecordReply(b.Route, err == nil)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("route", b.Route).
			Str("reply_route", route).
			Str("sender", senderString(msg)).
			Msg("reply failed")
	}
	return err
}

// drop logs a message rejected before its handler ran.
func (d *Dispatcher) drop(b *Binding, msg Message, outcome string, err error) {
	observability.RecordDispatch(b.Route, outcome)
	ev := d.logger.Warn().
		Err(err).
		Str("route", b.Route).
		Str("address", msg.Address).
		Str("sender", senderString(msg)).
		Str("tokens", token.Format(msg.Tokens)).
		Str("outcome", outcome)
	var verr *validate.Error
	if errors.As(err, &verr) {
		fields := make([]string, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = f.String()
		}
		ev = ev.Strs("fields", fields)
	}
	ev.Msg("message dropped")
}

// parse assembles the arguments for one binding. A message following the
// ('ndarray', dtype, *shape, blob) convention binds whole to a leading
// NumericArray parameter.
func parse(sig *signature.Signature, toks []token.Token) (argparse.Result, error) {
	if len(sig.Positional) > 0 && sig.Positional[0].Type.Kind == signature.TypeNumericArray {
		values := make([]any, len(toks))
		for i, tok := range toks {
			values[i] = tok.Value()
		}
		if ndarray.IsOSCArgs(values) {
			arr, err := ndarray.FromOSCArgs(values)
			if err != nil {
				return argparse.Result{}, &argparse.ParseError{
					Kind:  argparse.ErrMalformedNumericArray,
					Param: sig.Positional[0].Name,
					Err:   err,
				}
			}
			return argparse.Result{Positional: []any{arr}, Keyword: map[string]any{}}, nil
		}
	}
	return argparse.Parse(toks, sig)
}

func senderString(msg Message) string {
	if msg.Sender == nil {
		return ""
	}
	return msg.Sender.String()
}

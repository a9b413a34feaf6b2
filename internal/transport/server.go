// Package transport carries messages over OSC/UDP. A Server owns one socket
// used both to receive messages for a dispatch.Dispatcher and to send to
// its registered clients.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/scgolang/osc"

	"github.com/danmuck/osclink/internal/dispatch"
	"github.com/danmuck/osclink/internal/observability"
)

var ErrNotListening = errors.New("transport: server is not listening")

// Tap observes every inbound message after decoding.
type Tap interface {
	Record(route string, values []any)
}

// Server is an OSC endpoint.
type Server struct {
	cfg     Config
	d       *dispatch.Dispatcher
	clients *registry
	logger  zerolog.Logger

	mu   sync.RWMutex
	conn *osc.UDPConn
	tap  Tap
}

// NewServer registers the configured clients and installs the server as the
// dispatcher's replier.
func NewServer(cfg Config, d *dispatch.Dispatcher) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		d:       d,
		clients: newRegistry(),
		logger:  log.Logger.With().Str("component", "transport").Logger(),
	}
	for _, c := range cfg.Clients {
		if _, err := s.CreateClient(c.Name, c.Host, c.Port); err != nil {
			return nil, err
		}
	}
	if d != nil {
		d.SetReplier(s)
	}
	return s, nil
}

// SetTap installs an observer for inbound messages. Nil removes it.
func (s *Server) SetTap(t Tap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tap = t
}

// Listen binds the UDP socket. Port 0 picks a free port.
func (s *Server) Listen() error {
	if s.cfg.Port < 0 || s.cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrBadAddress, s.cfg.Port)
	}
	laddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	conn, err := osc.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", laddr, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.logger.Info().Str("addr", laddr.String()).Int("workers", s.cfg.workers()).Msg("osc server listening")
	return nil
}

// LocalAddr is the bound socket address, or nil before Listen.
func (s *Server) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Serve handles inbound messages until ctx is done or the socket is closed.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotListening
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-done:
		}
	}()

	err := conn.Serve(s.cfg.workers(), oscDispatcher{s: s, ctx: ctx})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close releases the socket. It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// CreateClient registers a destination. Empty host uses the server host and
// a zero port uses DefaultClientPort. A second name for the same address
// reuses the existing client.
func (s *Server) CreateClient(name, host string, port int) (*Client, error) {
	if host == "" {
		host = s.cfg.Host
	}
	if port == 0 {
		port = DefaultClientPort
	}
	addr, err := resolve(host, port)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = addr.String()
	}
	c, created := s.clients.add(name, addr)
	if created {
		s.logger.Info().Str("client", name).Str("addr", addr.String()).Msg("osc client created")
	}
	return c, nil
}

func (s *Server) ClientByName(name string) (*Client, bool) {
	return s.clients.byName(name)
}

// ClientBySender returns the client for addr, creating one named
// "host:port" the first time the address is seen.
func (s *Server) ClientBySender(addr net.Addr) (*Client, error) {
	udp, err := udpAddr(addr)
	if err != nil {
		return nil, err
	}
	if c, ok := s.clients.lookup(udp); ok {
		return c, nil
	}
	return s.CreateClient(udp.String(), udp.IP.String(), udp.Port)
}

// replyClient is the registered client for addr, or an unregistered one.
// Reply destinations are not stored, so senders cycling source ports do not
// grow the registry.
func (s *Server) replyClient(addr net.Addr) (*Client, error) {
	udp, err := udpAddr(addr)
	if err != nil {
		return nil, err
	}
	if c, ok := s.clients.lookup(udp); ok {
		return c, nil
	}
	return &Client{Name: udp.String(), Addr: udp}, nil
}

func udpAddr(addr net.Addr) (*net.UDPAddr, error) {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp, nil
	}
	udp, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	return udp, nil
}

// Clients lists every registered client.
func (s *Server) Clients() []Client {
	return s.clients.all()
}

// Send sends to the default client, or to the address embedded in a
// "host:port/route" route.
func (s *Server) Send(route string, values ...any) error {
	host, port, rest, embedded, err := splitRoute(route)
	if err != nil {
		return err
	}
	var c *Client
	if embedded {
		addr, err := resolve(host, port)
		if err != nil {
			return err
		}
		if c, err = s.ClientBySender(addr); err != nil {
			return err
		}
	} else {
		var ok bool
		if c, ok = s.clients.defaultClient(); !ok {
			return ErrNoClient
		}
	}
	return s.send(c, rest, values)
}

// SendTo sends to the client registered under name.
func (s *Server) SendTo(name, route string, values ...any) error {
	c, ok := s.clients.byName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClient, name)
	}
	return s.send(c, route, values)
}

// Reply implements dispatch.Replier.
func (s *Server) Reply(_ context.Context, dst dispatch.Destination, route string, values ...any) error {
	c, err := s.destination(dst)
	if err != nil {
		return err
	}
	return s.send(c, route, values)
}

func (s *Server) destination(dst dispatch.Destination) (*Client, error) {
	if dst.Host == "" && dst.Port == 0 {
		if dst.Sender == nil {
			return nil, ErrNoClient
		}
		return s.replyClient(dst.Sender)
	}
	host, port := dst.Host, dst.Port
	if sender, ok := dst.Sender.(*net.UDPAddr); ok {
		if host == "" {
			host = sender.IP.String()
		}
		if port == 0 {
			port = sender.Port
		}
	}
	if host == "" || port == 0 {
		return nil, fmt.Errorf("%w: incomplete reply address %q:%d", ErrBadAddress, host, port)
	}
	addr, err := resolve(host, port)
	if err != nil {
		return nil, err
	}
	return s.replyClient(addr)
}

func (s *Server) send(c *Client, route string, values []any) error {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	args, err := messageArguments(values)
	if err != nil {
		observability.RecordSend(c.Name, false)
		return err
	}
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		observability.RecordSend(c.Name, false)
		return ErrNotListening
	}
	err = conn.SendTo(c.Addr, osc.Message{Address: route, Arguments: args})
	observability.RecordSend(c.Name, err == nil)
	if err != nil {
		return fmt.Errorf("transport: send %s to %s: %w", route, c.Addr, err)
	}
	if s.cfg.Verbose {
		s.logger.Info().Str("client", c.Name).Str("route", route).Int("args", len(args)).Msg("osc sent")
	}
	return nil
}

func (s *Server) handle(ctx context.Context, msg osc.Message) {
	toks, err := Tokens(msg.Arguments)
	if err != nil {
		s.logger.Warn().Err(err).Str("address", msg.Address).Msg("osc message dropped")
		return
	}
	s.mu.RLock()
	tap := s.tap
	s.mu.RUnlock()
	if tap != nil {
		tap.Record(msg.Address, tokenValues(toks))
	}
	if s.cfg.Verbose {
		s.logger.Info().Str("address", msg.Address).Int("args", len(toks)).Msg("osc received")
	}
	if s.d == nil {
		return
	}
	err = s.d.Deliver(ctx, dispatch.Message{Address: msg.Address, Sender: msg.Sender, Tokens: toks})
	if err != nil {
		s.logger.Debug().Err(err).Str("address", msg.Address).Msg("osc delivery incomplete")
	}
}

// oscDispatcher adapts the server to osc.Dispatcher. Routing is done by
// the dispatch package, so exactMatch is ignored. Per-message failures are
// logged and never stop the serve loop.
type oscDispatcher struct {
	s   *Server
	ctx context.Context
}

func (o oscDispatcher) Dispatch(b osc.Bundle, exactMatch bool) error {
	for _, p := range b.Packets {
		switch x := p.(type) {
		case osc.Message:
			o.s.handle(o.ctx, x)
		case osc.Bundle:
			_ = o.Dispatch(x, exactMatch)
		}
	}
	return nil
}

func (o oscDispatcher) Invoke(msg osc.Message, _ bool) error {
	o.s.handle(o.ctx, msg)
	return nil
}

package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
)

var (
	ErrUnknownClient = errors.New("transport: unknown client")
	ErrNoClient      = errors.New("transport: no client to send to")
	ErrBadAddress    = errors.New("transport: bad client address")
)

// Client is one outbound destination.
type Client struct {
	Name string
	Addr *net.UDPAddr
}

// registry keeps clients by address and by name. The first client created
// is the default destination.
type registry struct {
	mu     sync.RWMutex
	byAddr map[string]*Client
	names  map[string]string
	first  string
}

func newRegistry() *registry {
	return &registry{byAddr: map[string]*Client{}, names: map[string]string{}}
}

// add registers name for addr, reusing an existing client for the address.
func (r *registry) add(name string, addr *net.UDPAddr) (*Client, bool) {
	key := addr.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	c, exists := r.byAddr[key]
	if !exists {
		c = &Client{Name: name, Addr: addr}
		r.byAddr[key] = c
		if r.first == "" {
			r.first = key
		}
	}
	r.names[name] = key
	return c, !exists
}

func (r *registry) byName(name string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.names[name]
	if !ok {
		return nil, false
	}
	c, ok := r.byAddr[key]
	return c, ok
}

func (r *registry) lookup(addr *net.UDPAddr) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byAddr[addr.String()]
	return c, ok
}

func (r *registry) defaultClient() (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byAddr[r.first]
	return c, ok
}

func (r *registry) all() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.byAddr))
	for _, c := range r.byAddr {
		out = append(out, *c)
	}
	return out
}

func resolve(host string, port int) (*net.UDPAddr, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d", ErrBadAddress, port)
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	return addr, nil
}

// splitRoute separates "host:port/route" into its address and route parts.
// ok is false for a plain route. Routes starting with '/' are always plain.
func splitRoute(route string) (host string, port int, rest string, ok bool, err error) {
	if strings.HasPrefix(route, "/") {
		return "", 0, route, false, nil
	}
	head, tail, _ := strings.Cut(route, "/")
	if !strings.Contains(head, ":") {
		return "", 0, route, false, nil
	}
	h, p, err := net.SplitHostPort(head)
	if err != nil {
		return "", 0, "", false, fmt.Errorf("%w: %q: %v", ErrBadAddress, route, err)
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, "", false, fmt.Errorf("%w: %q: bad port", ErrBadAddress, route)
	}
	return h, port, "/" + tail, true, nil
}

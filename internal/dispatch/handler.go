package dispatch

import (
	"context"
	"net"

	"github.com/danmuck/osclink/internal/protocol/token"
	"github.com/danmuck/osclink/internal/validate"
)

// Message is one inbound message as handed over by a transport.
type Message struct {
	Address string
	Sender  net.Addr
	Tokens  []token.Token
}

// Request is what a handler sees for one matched message.
type Request struct {
	// Route is the registered route or pattern that matched Address.
	Route   string
	Address string
	Sender  net.Addr
	Args    validate.Args
	Tokens  []token.Token
}

// Reply is forwarded to the sender when a handler returns one.
type Reply struct {
	Route  string
	Values []any
}

func NewReply(route string, values ...any) *Reply {
	return &Reply{Route: route, Values: values}
}

// HandlerFunc handles one message. A non-nil reply is sent back to the sender.
type HandlerFunc func(ctx context.Context, req *Request) (*Reply, error)

// Destination says where a reply goes. Empty Host and zero Port fall back to
// the sender's address.
type Destination struct {
	Sender net.Addr
	Host   string
	Port   int
}

// Replier delivers replies. transport.Server implements it.
type Replier interface {
	Reply(ctx context.Context, dst Destination, route string, values ...any) error
}

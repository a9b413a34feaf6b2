package transport

import (
	"net"
	"testing"

	"github.com/scgolang/osc"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/osclink/internal/dispatch"
	"github.com/danmuck/osclink/internal/protocol/codec"
	"github.com/danmuck/osclink/internal/protocol/ndarray"
	"github.com/danmuck/osclink/internal/protocol/token"
	"github.com/danmuck/osclink/internal/testutil/testlog"
)

func TestArgumentsNativeTypes(t *testing.T) {
	args, err := Arguments([]any{int32(1), 2, int64(3), float32(0.5), 0.25, "s", []byte{9}, true})
	require.NoError(t, err)
	require.Equal(t, osc.Arguments{
		osc.Int(1), osc.Int(2), osc.Int(3),
		osc.Float(0.5), osc.Float(0.25),
		osc.String("s"), osc.Blob([]byte{9}), osc.Bool(true),
	}, args)
}

func TestArgumentsFallBackToJSONText(t *testing.T) {
	args, err := Arguments([]any{nil, []any{1, 2}, map[string]any{"k": "v"}, int64(1) << 40})
	require.NoError(t, err)
	require.Equal(t, osc.Arguments{
		osc.String(codec.JSONPrefix + "null"),
		osc.String(codec.JSONPrefix + "[1,2]"),
		osc.String(codec.JSONPrefix + `{"k":"v"}`),
		osc.String(codec.JSONPrefix + "1099511627776"),
	}, args)

	_, err = Arguments([]any{make(chan int)})
	require.ErrorIs(t, err, ErrUnsupportedArgument)
}

func TestTokensFromArguments(t *testing.T) {
	toks, err := Tokens(osc.Arguments{
		osc.Int(7), osc.Float(1.5), osc.String("x"), osc.Blob([]byte{1, 2}), osc.Bool(false),
	})
	require.NoError(t, err)
	require.Equal(t, []token.Token{
		token.Int(7), token.Float(1.5), token.Text("x"), token.Blob([]byte{1, 2}), token.Bool(false),
	}, toks)
	require.Equal(t, []any{int64(7), 1.5, "x", []byte{1, 2}, false}, tokenValues(toks))
}

func TestMessageArgumentsPacksLoneArray(t *testing.T) {
	arr, err := ndarray.New(ndarray.Float32, []int{2}, []float64{1, 2})
	require.NoError(t, err)

	args, err := messageArguments([]any{arr})
	require.NoError(t, err)
	require.Len(t, args, 4)
	require.Equal(t, osc.String(ndarray.ArgsTag), args[0])
	require.Equal(t, osc.String(ndarray.Float32), args[1])
	require.Equal(t, osc.Int(2), args[2])

	toks, err := Tokens(args)
	require.NoError(t, err)
	back, err := ndarray.FromOSCArgs(tokenValues(toks))
	require.NoError(t, err)
	require.True(t, arr.Equal(back))

	_, err = messageArguments([]any{arr, 1})
	require.ErrorIs(t, err, ErrArrayNotAlone)
}

func TestSplitRoute(t *testing.T) {
	host, port, rest, ok, err := splitRoute("10.0.0.5:9000/synth/gain")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "10.0.0.5", host)
	require.Equal(t, 9000, port)
	require.Equal(t, "/synth/gain", rest)

	_, _, rest, ok, err = splitRoute("/plain:route")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "/plain:route", rest)

	_, _, rest, ok, err = splitRoute("gain")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "gain", rest)

	_, _, _, _, err = splitRoute("host:port/x")
	require.ErrorIs(t, err, ErrBadAddress)
}

func TestClientRegistry(t *testing.T) {
	testlog.Start(t)
	s, err := NewServer(Config{
		Host:    "127.0.0.1",
		Port:    9999,
		Clients: []ClientConfig{{Name: "sc"}, {Name: "viz", Port: 7000}},
	}, nil)
	require.NoError(t, err)

	sc, ok := s.ClientByName("sc")
	require.True(t, ok)
	require.Equal(t, "127.0.0.1:57120", sc.Addr.String())

	again, err := s.CreateClient("supercollider", "127.0.0.1", DefaultClientPort)
	require.NoError(t, err)
	require.Same(t, sc, again)
	alias, ok := s.ClientByName("supercollider")
	require.True(t, ok)
	require.Same(t, sc, alias)

	def, ok := s.clients.defaultClient()
	require.True(t, ok)
	require.Same(t, sc, def)

	sender := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4242}
	c, err := s.ClientBySender(sender)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:4242", c.Name)
	require.Len(t, s.Clients(), 3)

	_, err = s.CreateClient("bad", "127.0.0.1", 70000)
	require.ErrorIs(t, err, ErrBadAddress)
}

func TestReplyDestination(t *testing.T) {
	testlog.Start(t)
	s, err := NewServer(DefaultConfig(), nil)
	require.NoError(t, err)
	sender := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5555}

	c, err := s.destination(dispatch.Destination{Sender: sender})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:5555", c.Addr.String())

	c, err = s.destination(dispatch.Destination{Sender: sender, Port: 6000})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:6000", c.Addr.String())

	c, err = s.destination(dispatch.Destination{Sender: sender, Host: "10.1.1.1"})
	require.NoError(t, err)
	require.Equal(t, "10.1.1.1:5555", c.Addr.String())

	_, err = s.destination(dispatch.Destination{})
	require.ErrorIs(t, err, ErrNoClient)
	require.Empty(t, s.Clients())

	known, err := s.CreateClient("viz", "127.0.0.1", 5555)
	require.NoError(t, err)
	c, err = s.destination(dispatch.Destination{Sender: sender})
	require.NoError(t, err)
	require.Same(t, known, c)
	require.Len(t, s.Clients(), 1)
}

func TestSendRequiresSocketAndClient(t *testing.T) {
	testlog.Start(t)
	d := dispatch.New()
	s, err := NewServer(DefaultConfig(), d)
	require.NoError(t, err)

	require.ErrorIs(t, s.Send("/x", 1), ErrNoClient)
	require.ErrorIs(t, s.SendTo("nobody", "/x"), ErrUnknownClient)
	require.ErrorIs(t, s.Send("127.0.0.1:9100/x", 1), ErrNotListening)
	_, ok := s.ClientByName("127.0.0.1:9100")
	require.True(t, ok)
	require.Nil(t, s.LocalAddr())
	require.NoError(t, s.Close())
}

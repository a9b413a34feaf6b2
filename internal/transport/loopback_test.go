package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/scgolang/osc"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/osclink/internal/dispatch"
	"github.com/danmuck/osclink/internal/signature"
	"github.com/danmuck/osclink/internal/testutil/testlog"
	"github.com/danmuck/osclink/internal/validate"
)

// inbox collects every message a peer socket receives.
type inbox struct {
	msgs chan osc.Message
}

func (in inbox) Dispatch(b osc.Bundle, _ bool) error {
	for _, p := range b.Packets {
		if msg, ok := p.(osc.Message); ok {
			in.msgs <- msg
		}
	}
	return nil
}

func (in inbox) Invoke(msg osc.Message, _ bool) error {
	in.msgs <- msg
	return nil
}

func startServer(t *testing.T, d *dispatch.Dispatcher) *Server {
	t.Helper()
	srv, err := NewServer(Config{Host: "127.0.0.1", Port: 0}, d)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv
}

func startPeer(t *testing.T) (*osc.UDPConn, inbox) {
	t.Helper()
	peer, err := osc.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	in := inbox{msgs: make(chan osc.Message, 8)}
	go func() { _ = peer.Serve(1, in) }()
	t.Cleanup(func() { _ = peer.Close() })
	return peer, in
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

func TestServeDeliversAndRepliesOverUDP(t *testing.T) {
	testlog.Start(t)
	d := dispatch.New()
	bound := make(chan validate.Args, 4)
	require.NoError(t, d.Handle("/sum", []signature.Param{
		{Name: "xs", Type: signature.SplatAll()},
		{Name: "scale", Type: signature.Float(), HasDefault: true, Default: 1.0},
	}, func(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
		bound <- req.Args
		total := 0.0
		for _, v := range req.Args.List("xs") {
			total += float64(v.(int64))
		}
		return dispatch.NewReply("sum/out", int64(total*req.Args.Float("scale"))), nil
	}))
	srv := startServer(t, d)
	peer, in := startPeer(t)

	require.NoError(t, peer.SendTo(srv.LocalAddr(), osc.Message{
		Address:   "/sum",
		Arguments: osc.Arguments{osc.Int(1), osc.Int(2), osc.String("scale"), osc.Float(2)},
	}))

	args := receive(t, bound)
	require.Equal(t, []any{int64(1), int64(2)}, args.List("xs"))
	require.Equal(t, 2.0, args.Float("scale"))

	reply := receive(t, in.msgs)
	require.Equal(t, "/sum/out", reply.Address)
	require.Equal(t, []osc.Argument{osc.Int(6)}, reply.Arguments)
	require.Empty(t, srv.Clients())

	require.NoError(t, peer.SendTo(srv.LocalAddr(), osc.Bundle{
		Timetag: osc.Immediately,
		Packets: []osc.Packet{
			osc.Message{Address: "/sum", Arguments: osc.Arguments{osc.Int(4)}},
			osc.Message{Address: "/sum", Arguments: osc.Arguments{osc.Int(5), osc.Int(5)}},
		},
	}))

	require.Equal(t, []any{int64(4)}, receive(t, bound).List("xs"))
	require.Equal(t, []any{int64(5), int64(5)}, receive(t, bound).List("xs"))
	got := map[int32]bool{}
	for range 2 {
		msg := receive(t, in.msgs)
		require.Equal(t, "/sum/out", msg.Address)
		require.Len(t, msg.Arguments, 1)
		n, err := msg.Arguments[0].ReadInt32()
		require.NoError(t, err)
		got[n] = true
	}
	require.Equal(t, map[int32]bool{4: true, 10: true}, got)
}

func TestServeRecordsThroughTap(t *testing.T) {
	testlog.Start(t)
	tap := &tapRecorder{seen: make(chan []any, 1)}
	srv := startServer(t, nil)
	srv.SetTap(tap)
	peer, _ := startPeer(t)

	require.NoError(t, peer.SendTo(srv.LocalAddr(), osc.Message{
		Address:   "/note",
		Arguments: osc.Arguments{osc.Int(60), osc.String("on")},
	}))
	require.Equal(t, []any{int64(60), "on"}, receive(t, tap.seen))
}

type tapRecorder struct {
	seen chan []any
}

func (r *tapRecorder) Record(_ string, values []any) {
	r.seen <- values
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/osclink/internal/config"
	"github.com/danmuck/osclink/internal/dispatch"
	"github.com/danmuck/osclink/internal/observability"
	"github.com/danmuck/osclink/internal/signature"
	"github.com/danmuck/osclink/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to oscsend TOML config")
	host := flag.String("host", "", "target host (default 127.0.0.1)")
	port := flag.Int("port", 0, "target port (default 9999)")
	listen := flag.String("listen", "", "local address to send from and receive replies on")
	wait := flag.Duration("wait", 0, "how long to print replies after sending")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: oscsend [flags] [host:port]/route [args...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	observability.InitLogger("oscsend")

	cfg := config.SendConfig{Host: "127.0.0.1", Port: 9999, Listen: "127.0.0.1:0"}
	if *configPath != "" {
		loaded, err := config.LoadSendConfig(*configPath)
		if err != nil {
			fail(err)
		}
		cfg = loaded
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if err := config.ValidateSendConfig(cfg); err != nil {
		fail(err)
	}

	args, err := parseArgs(flag.Args()[1:])
	if err != nil {
		fail(err)
	}
	if err := run(cfg, flag.Arg(0), args, *wait); err != nil {
		fail(err)
	}
}

func run(cfg config.SendConfig, route string, args []any, wait time.Duration) error {
	lhost, lport, err := splitListen(cfg.Listen)
	if err != nil {
		return err
	}
	d := dispatch.New()
	err = d.Handle("/**", []signature.Param{{Name: "values", Kind: signature.VarPositional}},
		func(_ context.Context, req *dispatch.Request) (*dispatch.Reply, error) {
			fmt.Println(formatReply(req.Address, req.Args.Extra))
			return nil, nil
		}, dispatch.WithoutKeywords())
	if err != nil {
		return err
	}

	srv, err := transport.NewServer(transport.Config{Host: lhost, Port: lport}, d)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := srv.Serve(ctx); err != nil {
			log.Warn().Err(err).Msg("reply listener stopped")
		}
	}()

	if strings.HasPrefix(route, "/") {
		if _, err := srv.CreateClient("target", cfg.Host, cfg.Port); err != nil {
			return err
		}
		err = srv.SendTo("target", route, args...)
	} else {
		err = srv.Send(route, args...)
	}
	if err != nil {
		return err
	}
	log.Info().Str("route", route).Int("args", len(args)).Msg("sent")
	if wait > 0 {
		time.Sleep(wait)
	}
	return nil
}

func splitListen(addr string) (string, int, error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("listen address %q: bad port", addr)
	}
	return h, port, nil
}

func formatReply(address string, values []any) string {
	parts := make([]string, 0, len(values)+1)
	parts = append(parts, address)
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, " ")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "oscsend: %v\n", err)
	os.Exit(1)
}

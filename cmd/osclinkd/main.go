package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/osclink/internal/daemon"
	"github.com/danmuck/osclink/internal/logging"
	"github.com/danmuck/osclink/internal/recorder"
)

func main() {
	configPath := flag.String("config", "", "path to osclinkd TOML config")
	playback := flag.String("playback", "", "recording to replay to the default client")
	loop := flag.Bool("loop", false, "loop playback")
	stretch := flag.Float64("stretch", 1, "playback time stretch")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := runtimeConfig{Service: daemon.DefaultConfig()}
	if *configPath != "" {
		loaded, err := loadDaemonConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "osclinkd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level ignored")
	}

	if *playback != "" {
		cfg.Service.PlaybackFile = *playback
		cfg.Service.Playback = recorder.PlaybackOptions{Loop: *loop, TimeStretch: *stretch}
	}

	svc, err := daemon.NewService(cfg.Service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "osclinkd: %v\n", err)
		os.Exit(1)
	}
	if err := newHandlers(svc.Recorder()).register(svc.Dispatcher()); err != nil {
		fmt.Fprintf(os.Stderr, "osclinkd: %v\n", err)
		os.Exit(1)
	}

	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "osclinkd: %v\n", err)
		os.Exit(1)
	}
}

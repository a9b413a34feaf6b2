package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/osclink/internal/config"
	"github.com/danmuck/osclink/internal/daemon"
	"github.com/danmuck/osclink/internal/transport"
)

type fileClient struct {
	Name string `toml:"name"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type fileLog struct {
	Level string `toml:"level"`
}

type fileConfig struct {
	ID          string       `toml:"id"`
	Host        string       `toml:"host"`
	Port        int          `toml:"port"`
	Workers     int          `toml:"workers"`
	Concurrent  bool         `toml:"concurrent"`
	Verbose     bool         `toml:"verbose"`
	AdminListen string       `toml:"admin_listen"`
	AdminToken  string       `toml:"admin_token"`
	CorsOrigins []string     `toml:"cors_origins"`
	RecordFile  string       `toml:"record_file"`
	Heartbeat   string       `toml:"heartbeat"`
	Clients     []fileClient `toml:"clients"`
	Log         fileLog      `toml:"log"`
}

// runtimeConfig is the daemon config plus settings applied outside it.
type runtimeConfig struct {
	Service  daemon.Config
	LogLevel string
}

func loadDaemonConfig(path string) (runtimeConfig, error) {
	cfg := runtimeConfig{Service: daemon.DefaultConfig()}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load osclinkd config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.Service.ID = id
		}
	}
	if meta.IsDefined("host") {
		cfg.Service.Transport.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Service.Transport.Port = raw.Port
	}
	if meta.IsDefined("workers") {
		cfg.Service.Transport.Workers = raw.Workers
	}
	if meta.IsDefined("concurrent") {
		cfg.Service.Transport.Concurrent = raw.Concurrent
	}
	if meta.IsDefined("verbose") {
		cfg.Service.Transport.Verbose = raw.Verbose
	}
	if meta.IsDefined("admin_listen") {
		cfg.Service.AdminListenAddr = strings.TrimSpace(raw.AdminListen)
	}
	if meta.IsDefined("admin_token") {
		cfg.Service.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.Service.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("record_file") {
		cfg.Service.RecordFile = strings.TrimSpace(raw.RecordFile)
	}
	if meta.IsDefined("heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Heartbeat))
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse heartbeat: %w", err)
		}
		cfg.Service.HeartbeatInterval = d
	}
	if meta.IsDefined("clients") {
		clients := make([]transport.ClientConfig, 0, len(raw.Clients))
		for _, c := range raw.Clients {
			clients = append(clients, transport.ClientConfig{
				Name: strings.TrimSpace(c.Name),
				Host: strings.TrimSpace(c.Host),
				Port: c.Port,
			})
		}
		cfg.Service.Transport.Clients = clients
	}
	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}

	if err := config.ValidateDaemonConfig(config.DaemonConfig{
		Port:        cfg.Service.Transport.Port,
		Workers:     cfg.Service.Transport.Workers,
		AdminListen: cfg.Service.AdminListenAddr,
		Clients:     clientEntries(cfg.Service.Transport.Clients),
	}); err != nil {
		return runtimeConfig{}, err
	}
	return cfg, nil
}

func clientEntries(in []transport.ClientConfig) []config.ClientConfig {
	out := make([]config.ClientConfig, len(in))
	for i, c := range in {
		out[i] = config.ClientConfig{Name: c.Name, Host: c.Host, Port: c.Port}
	}
	return out
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

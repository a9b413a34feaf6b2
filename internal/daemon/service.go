// Package daemon runs an osclink process: the OSC transport feeding a
// dispatcher, the optional recorder and the optional admin HTTP surface.
package daemon

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/osclink/internal/admin"
	"github.com/danmuck/osclink/internal/auth"
	"github.com/danmuck/osclink/internal/dispatch"
	"github.com/danmuck/osclink/internal/observability"
	"github.com/danmuck/osclink/internal/recorder"
	"github.com/danmuck/osclink/internal/transport"
)

var ErrInvalidHeartbeatInterval = errors.New("daemon: invalid heartbeat interval")

// Config configures one daemon process.
type Config struct {
	ID                string
	Transport         transport.Config
	AdminListenAddr   string
	AdminToken        string // bearer token for mutating admin routes; empty disables auth
	CorsOrigins       []string
	RecordFile        string
	HeartbeatInterval time.Duration
	// PlaybackFile is replayed to the default client once the socket is up.
	PlaybackFile string
	Playback     recorder.PlaybackOptions
}

// Daemon defaults for a local process.
func DefaultConfig() Config {
	return Config{
		ID:                "osclinkd",
		Transport:         transport.DefaultConfig(),
		AdminListenAddr:   "",
		HeartbeatInterval: 30 * time.Second,
	}
}

// Service wires the daemon components.
type Service struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	transport  *transport.Server
	recorder   *recorder.Recorder
}

// Daemon service constructor using explicit config.
func NewService(cfg Config) (*Service, error) {
	d := dispatch.New()
	srv, err := transport.NewServer(cfg.Transport, d)
	if err != nil {
		return nil, err
	}
	rec := recorder.New()
	srv.SetTap(rec)
	return &Service{
		cfg:        cfg,
		dispatcher: d,
		transport:  srv,
		recorder:   rec,
	}, nil
}

func (s *Service) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }
func (s *Service) Transport() *transport.Server     { return s.transport }
func (s *Service) Recorder() *recorder.Recorder     { return s.recorder }

// Daemon runtime entrypoint that blocks until process signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext blocks until ctx is done or a component fails.
func (s *Service) RunContext(ctx context.Context) error {
	if err := s.bootstrap(); err != nil {
		return err
	}
	return s.serve(ctx)
}

func (s *Service) bootstrap() error {
	if s.cfg.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	observability.RegisterMetrics()
	if err := s.transport.Listen(); err != nil {
		return err
	}
	if s.cfg.RecordFile != "" {
		if err := s.recorder.Start(s.cfg.RecordFile); err != nil {
			_ = s.transport.Close()
			return err
		}
	}
	log.Info().
		Str("id", s.cfg.ID).
		Str("addr", addrString(s.transport)).
		Int("routes", len(s.dispatcher.Routes())).
		Int("clients", len(s.transport.Clients())).
		Msg("daemon ready")
	return nil
}

func (s *Service) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.shutdown()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	oscErr := make(chan error, 1)
	adminErr := make(chan error, 1)
	go func() {
		oscErr <- s.transport.Serve(ctx)
	}()
	if s.cfg.PlaybackFile != "" {
		go func() {
			err := recorder.Playback(ctx, s.cfg.PlaybackFile, s.transport, s.cfg.Playback)
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("path", s.cfg.PlaybackFile).Msg("playback failed")
			}
		}()
	}
	if strings.TrimSpace(s.cfg.AdminListenAddr) != "" {
		adm := admin.New(s.cfg.ID, s.cfg.AdminListenAddr, s.cfg.CorsOrigins, admin.Deps{
			Dispatcher: s.dispatcher,
			Transport:  s.transport,
			Recorder:   s.recorder,
			Auth:       s.adminAuth(),
		})
		go func() {
			adminErr <- adm.Serve(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("id", s.cfg.ID).Msg("daemon shutdown")
			return nil
		case err := <-oscErr:
			if err != nil {
				return err
			}
			return nil
		case err := <-adminErr:
			if err != nil {
				return err
			}
		case <-ticker.C:
			log.Info().
				Str("id", s.cfg.ID).
				Int("routes", len(s.dispatcher.Routes())).
				Int("clients", len(s.transport.Clients())).
				Bool("recording", s.recorder.Recording()).
				Msg("heartbeat")
		}
	}
}

func (s *Service) adminAuth() auth.Validator {
	if s.cfg.AdminToken == "" {
		return nil
	}
	return auth.StaticToken{Token: s.cfg.AdminToken}
}

func (s *Service) shutdown() {
	if err := s.recorder.Stop(); err != nil && !errors.Is(err, recorder.ErrNotRecording) {
		log.Warn().Err(err).Msg("recorder stop failed")
	}
	if err := s.transport.Close(); err != nil {
		log.Warn().Err(err).Msg("transport close failed")
	}
}

func addrString(srv *transport.Server) string {
	if addr := srv.LocalAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
